package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/minijohn/internal/config"
	jwtx "github.com/dropDatabas3/minijohn/internal/jwt"
)

func newKeysCmd(load func() (*config.Config, error)) *cobra.Command {
	keysCmd := &cobra.Command{Use: "keys", Short: "Manejo de la clave de firma RSA"}

	var (
		out   string
		bits  int
		force bool
	)
	gen := &cobra.Command{
		Use:   "generate",
		Short: "Genera una clave RSA en PEM (PKCS#8) e imprime su kid",
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, err := jwtx.GenerateRSAKey(bits)
			if err != nil {
				return err
			}
			pemBytes, err := jwtx.EncodePrivateKeyPEM(priv)
			if err != nil {
				return err
			}
			kid := jwtx.Thumbprint(&priv.PublicKey)
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(pemBytes)
				return err
			}
			flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
			if force {
				flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			}
			f, err := os.OpenFile(out, flags, 0o600)
			if err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			defer f.Close()
			if _, err := f.Write(pemBytes); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "kid=%s path=%s\n", kid, out)
			return nil
		},
	}
	gen.Flags().StringVarP(&out, "out", "o", "", "archivo destino (vacío o - = stdout)")
	gen.Flags().IntVar(&bits, "bits", 2048, "tamaño de la clave")
	gen.Flags().BoolVar(&force, "force", false, "sobrescribir si el archivo existe")

	show := &cobra.Command{
		Use:   "jwks",
		Short: "Imprime el JWKS público de la clave configurada",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			km, err := jwtx.LoadKeyManager(jwtx.KeyConfig{
				PrivateKeyPath: cfg.Keys.PrivateKeyPath,
				PrivateKeyPEM:  cfg.Keys.PrivateKeyPEM,
				KID:            cfg.Keys.KID,
				Bits:           cfg.Keys.Bits,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(km.JWKSJSON()))
			return err
		},
	}

	keysCmd.AddCommand(gen, show)
	return keysCmd
}
