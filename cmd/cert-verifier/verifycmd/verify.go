/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifycmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/blockcerts-verifier/cmd/cert-verifier/verifieropts"
	"github.com/trustbloc/blockcerts-verifier/internal/pkg/cmdutil"
	logfields "github.com/trustbloc/blockcerts-verifier/internal/pkg/log"
	"github.com/trustbloc/blockcerts-verifier/pkg/certificate"
	"github.com/trustbloc/blockcerts-verifier/pkg/observability/metrics/noop"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier"
	"github.com/trustbloc/blockcerts-verifier/pkg/verifier/steps"
)

var logger = log.New("verify-cmd")

const (
	fileFlagName      = "file"
	fileFlagShorthand = "f"
	fileFlagUsage     = "The path of the certificate to verify. Use - to read the certificate from stdin. " +
		verifieropts.CommonEnvVarUsageText + fileEnvKey
	fileEnvKey = "BLOCKCERTS_CERTIFICATE_FILE"

	localeFlagName  = "locale"
	localeFlagUsage = "The locale of the step labels and messages (for example: en-US, fr, es, it, ja, mt). " +
		"Defaults to auto, which selects en-US. " + verifieropts.CommonEnvVarUsageText + localeEnvKey
	localeEnvKey = "BLOCKCERTS_LOCALE"

	outputFlagName  = "output"
	outputFlagUsage = "The output format. Possible values [text] [json]. Defaults to text. " +
		verifieropts.CommonEnvVarUsageText + outputEnvKey
	outputEnvKey = "BLOCKCERTS_OUTPUT"

	outputText = "text"
	outputJSON = "json"

	stdin = "-"
)

type parameters struct {
	file     string
	locale   string
	output   string
	verifier *verifieropts.Parameters
}

// Result is the JSON output of a verification.
type Result struct {
	Locale  string                 `json:"locale"`
	Final   *verifier.FinalStep    `json:"final"`
	Records []*verifier.StepRecord `json:"records"`
	Signers []*verifier.Signer     `json:"signers"`
}

// GetVerifyCmd returns the Cobra verify command.
func GetVerifyCmd() *cobra.Command {
	return newVerifyCmd()
}

// newVerifyCmd returns the verify command. The given options are applied after the ones built from the flags.
func newVerifyCmd(opts ...verifier.Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a certificate",
		Long:  "Verify a Blockcerts certificate and print the outcome of each verification step",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := getParameters(cmd)
			if err != nil {
				return err
			}

			return verify(cmd, params, opts)
		},
	}

	cmd.Flags().StringP(fileFlagName, fileFlagShorthand, "", fileFlagUsage)
	cmd.Flags().String(localeFlagName, "", localeFlagUsage)
	cmd.Flags().String(outputFlagName, "", outputFlagUsage)

	verifieropts.CreateFlags(cmd)

	return cmd
}

func getParameters(cmd *cobra.Command) (*parameters, error) {
	file, err := cmdutil.GetUserSetVarFromString(cmd, fileFlagName, fileEnvKey, false)
	if err != nil {
		return nil, err
	}

	output := cmdutil.GetUserSetOptionalVarFromString(cmd, outputFlagName, outputEnvKey)

	switch output {
	case "":
		output = outputText
	case outputText, outputJSON:
	default:
		return nil, fmt.Errorf("unsupported output format [%s]", output)
	}

	verifierParams, err := verifieropts.GetParameters(cmd)
	if err != nil {
		return nil, err
	}

	return &parameters{
		file:     file,
		locale:   cmdutil.GetUserSetOptionalVarFromString(cmd, localeFlagName, localeEnvKey),
		output:   output,
		verifier: verifierParams,
	}, nil
}

func verify(cmd *cobra.Command, params *parameters, extraOpts []verifier.Option) error {
	raw, err := readCertificate(cmd.InOrStdin(), params.file)
	if err != nil {
		return err
	}

	cert, err := certificate.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse certificate: %w", err)
	}

	client, err := params.verifier.HTTPClient()
	if err != nil {
		return err
	}

	if params.locale != "" {
		extraOpts = append([]verifier.Option{verifier.WithLocale(params.locale)}, extraOpts...)
	}

	opts, err := params.verifier.VerifierOptions(client, &noop.NoOptMetrics{}, nil, extraOpts...)
	if err != nil {
		return err
	}

	engine := verifier.New(cert, opts...)

	if err := engine.Init(cmd.Context()); err != nil {
		return fmt.Errorf("initialize verifier: %w", err)
	}

	out := cmd.OutOrStdout()

	var cb verifier.ProgressCallback

	if params.output == outputText {
		cb = func(update *verifier.StepUpdate) {
			printUpdate(out, update)
		}
	}

	final, err := engine.Verify(cmd.Context(), cb)
	if err != nil {
		return fmt.Errorf("verify certificate: %w", err)
	}

	logger.Debug("Verification completed", logfields.WithCredentialID(cert.ID),
		logfields.WithStepStatus(string(final.Status)))

	if params.output == outputJSON {
		if err := printJSON(out, &Result{
			Locale:  engine.Locale(),
			Final:   final,
			Records: engine.Records(),
			Signers: engine.SignersData(),
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "%s: %s\n", final.Status, final.Message)
	}

	if final.Status != steps.Success {
		return fmt.Errorf("certificate verification failed: %s", final.Message)
	}

	return nil
}

func readCertificate(in io.Reader, file string) ([]byte, error) {
	if file == stdin {
		raw, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("read certificate from stdin: %w", err)
		}

		return raw, nil
	}

	raw, err := os.ReadFile(filepath.Clean(file))
	if err != nil {
		return nil, fmt.Errorf("read certificate file: %w", err)
	}

	return raw, nil
}

func printUpdate(out io.Writer, update *verifier.StepUpdate) {
	switch update.Status {
	case steps.Failure:
		fmt.Fprintf(out, "[%s] %s (%s): %s\n", update.Status, update.Label, update.Code, update.ErrorMessage)
	default:
		fmt.Fprintf(out, "[%s] %s (%s)\n", update.Status, update.Label, update.Code)
	}
}

func printJSON(out io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	if _, err := fmt.Fprintln(out, string(b)); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	return nil
}
