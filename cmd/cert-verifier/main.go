/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package main Blockcerts verifier.
//
// Terms Of Service:
//
//     Schemes: http
//     Version: 1.0
//     License: SPDX-License-Identifier: Apache-2.0
//
// swagger:meta
package main

import (
	"github.com/spf13/cobra"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/blockcerts-verifier/cmd/cert-verifier/startcmd"
	"github.com/trustbloc/blockcerts-verifier/cmd/cert-verifier/verifycmd"
)

var logger = log.New("cert-verifier")

func main() {
	rootCmd := &cobra.Command{
		Use: "cert-verifier",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(startcmd.GetStartCmd())
	rootCmd.AddCommand(verifycmd.GetVerifyCmd())

	if err := rootCmd.Execute(); err != nil {
		logger.Fatal("Failed to run certificate verifier.", log.WithError(err))
	}
}
