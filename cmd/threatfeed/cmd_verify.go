package main

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ochairo/threatfeed/internal/domain-adapters/gateways"
	"github.com/ochairo/threatfeed/internal/domain/services"
	"github.com/ochairo/threatfeed/internal/external-adapters/filesystem"
	"github.com/ochairo/threatfeed/internal/external-adapters/gpg"
	"github.com/ochairo/threatfeed/internal/ui"
)

func newVerifyCmd(a *app) *cobra.Command {
	var (
		key       string
		signature string
		sha256sum string
	)

	cmd := &cobra.Command{
		Use:   "verify [file]",
		Short: "Verify the README section, its signature and checksum",
		Long: `Check that the document still carries the marker-delimited section and,
when requested, that its detached OpenPGP signature and SHA-256 digest match.
The file defaults to the configured README.`,
		Example: `  threatfeed verify
  threatfeed verify README.md --key maintainer.asc
  threatfeed verify README.md --key https://example.com/KEYS --sha256 3f2a...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Readme
			if len(args) == 1 {
				path = args[0]
			}

			verified, failed := 0, 0
			check := func(name string, err error, detail string) {
				if err != nil {
					ui.Warning("%s FAILED: %v", name, err)
					failed++
					return
				}
				ui.Success("%s verified%s", name, detail)
				verified++
			}

			// Markers
			doc, err := filesystem.NewDocumentRepository(afero.NewOsFs(), path).ReadDocument(cmd.Context())
			if err != nil {
				return err
			}
			section, err := services.NewSplicer(a.cfg.Markers.Start, a.cfg.Markers.End).Extract(doc)
			check("Section markers", err, "")
			if err == nil && strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(section, a.cfg.Markers.Start), a.cfg.Markers.End)) == "" {
				ui.Info("Section is empty; run \"threatfeed update\" to fill it")
			}

			// Checksum
			if sha256sum != "" {
				err := gateways.NewChecksumVerifier(nil).VerifyChecksum(cmd.Context(), path, sha256sum)
				check("SHA-256 checksum", err, "")
			}

			// Signature
			if key != "" {
				if signature == "" {
					signature = path + a.cfg.Sign.Suffix
				}
				fingerprint, err := verifySignature(cmd, key, path, signature)
				check("OpenPGP signature", err, " (key "+fingerprint+")")
			}

			if failed > 0 {
				return errors.Newf("%d of %d checks failed", failed, failed+verified)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Public key file or URL used to check the signature")
	cmd.Flags().StringVar(&signature, "signature", "", "Detached signature (default <file> plus sign.suffix)")
	cmd.Flags().StringVar(&sha256sum, "sha256", "", "Expected SHA-256 digest of the file")

	return cmd
}

func verifySignature(cmd *cobra.Command, key, path, signature string) (string, error) {
	verifier := gpg.NewVerifier()

	var err error
	if strings.HasPrefix(key, "https://") || strings.HasPrefix(key, "http://") {
		err = verifier.ImportKeysFromURL(cmd.Context(), key)
	} else {
		err = verifier.ImportKeyFromFile(key)
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to import key")
	}

	return verifier.VerifySignatureFromFile(path, signature)
}
