package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// adminClient habla con /users de un servidor en marcha.
type adminClient struct {
	BaseURL string
	HTTP    *http.Client
}

func (c *adminClient) do(method, path string, body any) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, strings.TrimRight(c.BaseURL, "/")+path, rd)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return resp.StatusCode, b, err
}

// call ejecuta el request e imprime el body indentado; status != 2xx es error.
func (c *adminClient) call(cmd *cobra.Command, method, path string, body any) error {
	status, b, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return fmt.Errorf("%s %s: status=%d body=%s", method, path, status, strings.TrimSpace(string(b)))
	}
	if len(b) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "status=%d\n", status)
		return nil
	}
	var v any
	if json.Unmarshal(b, &v) == nil {
		p, _ := json.MarshalIndent(v, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(p))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}

func userPath(id string) string { return "/users/" + url.PathEscape(id) }

func newUsersCmd() *cobra.Command {
	baseURL := os.Getenv("MINIJOHN_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	cl := &adminClient{HTTP: &http.Client{Timeout: 30 * time.Second}}

	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Administra usuarios de un servidor en marcha (vía /users)",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cl.BaseURL = baseURL
		},
	}
	usersCmd.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del servidor (env MINIJOHN_URL)")

	list := &cobra.Command{
		Use:   "list",
		Short: "Lista usuarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call(cmd, http.MethodGet, "/users", nil)
		},
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Muestra un usuario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call(cmd, http.MethodGet, userPath(args[0]), nil)
		},
	}

	var (
		putUsername string
		putPassword string
		putAttrs    string
	)
	put := &cobra.Command{
		Use:   "put <id>",
		Short: "Crea o actualiza un usuario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"username": putUsername, "password": putPassword}
			if putAttrs != "" {
				var attrs map[string]any
				if err := json.Unmarshal([]byte(putAttrs), &attrs); err != nil {
					return fmt.Errorf("--attributes must be a JSON object: %w", err)
				}
				body["attributes"] = attrs
			}
			return cl.call(cmd, http.MethodPut, userPath(args[0]), body)
		},
	}
	put.Flags().StringVar(&putUsername, "username", "", "username (obligatorio al crear)")
	put.Flags().StringVar(&putPassword, "password", "", "password en claro o hash argon2id (obligatorio al crear)")
	put.Flags().StringVar(&putAttrs, "attributes", "", `atributos como JSON, ej. '{"roles":["admin"]}'`)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Borra un usuario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call(cmd, http.MethodDelete, userPath(args[0]), nil)
		},
	}

	disable := &cobra.Command{
		Use:   "disable <id>",
		Short: "Deshabilita un usuario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call(cmd, http.MethodPost, userPath(args[0])+"/disable", nil)
		},
	}

	enable := &cobra.Command{
		Use:   "enable <id>",
		Short: "Habilita un usuario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call(cmd, http.MethodPost, userPath(args[0])+"/enable", nil)
		},
	}

	usersCmd.AddCommand(list, get, put, del, disable, enable)
	return usersCmd
}
