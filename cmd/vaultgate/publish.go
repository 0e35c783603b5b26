package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/VaultGate/internal/config"
	"github.com/dharsanguruparan/VaultGate/internal/s3storage"
	"github.com/dharsanguruparan/VaultGate/internal/signing"
)

func newPublishCmd() *cobra.Command {
	var (
		key  string
		base string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "publish FILE",
		Short: "Upload a file to the object bucket and print a signed URL for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.S3Endpoint == "" {
				return errors.New("VAULTGATE_S3_ENDPOINT is not set")
			}
			if base == "" {
				if base = cfg.PublicURL; base == "" {
					return errors.New("--base or VAULTGATE_PUBLIC_URL is required")
				}
			}
			if key == "" {
				key = filepath.Base(args[0])
			}
			if ttl <= 0 {
				ttl = cfg.SignedURLTTL
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return err
			}
			// Sniff the first 512 bytes for the content type, then rewind.
			sniff := make([]byte, 512)
			n, _ := f.Read(sniff)
			if _, err := f.Seek(0, 0); err != nil {
				return err
			}

			store, err := s3storage.New(cfg)
			if err != nil {
				return err
			}
			if err := store.EnsureBucket(ctx); err != nil {
				return err
			}
			if err := store.Put(ctx, key, f, info.Size(), http.DetectContentType(sniff[:n])); err != nil {
				return err
			}

			signed, err := signing.NewSigner(cfg.Keys).SignTTL(objectURL(base, key), cfg.SigningVersion, time.Now(), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Object key (defaults to the file name)")
	cmd.Flags().StringVar(&base, "base", "", "Public base URL of the server (defaults to VAULTGATE_PUBLIC_URL)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Lifetime of the URL (defaults to VAULTGATE_SIGNED_TTL)")
	return cmd
}

// objectURL is the URL under which the server exposes key.
func objectURL(base, key string) string {
	segments := strings.Split(strings.Trim(key, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/objects/" + strings.Join(segments, "/")
}
