package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"escrow/internal/domain"
	"escrow/internal/middleware"
)

type client struct {
	baseURL string
	account string
	secret  string
	issuer  string
	token   string
	http    *http.Client
}

func (c *client) bearer() (string, error) {
	if c.token != "" {
		return c.token, nil
	}
	if c.account == "" {
		return "", errors.New("--as is required for this command")
	}
	if c.secret == "" {
		return "", errors.New("--jwt-secret (or JWT_SECRET) is required to sign a token")
	}
	return middleware.SignJWT(c.secret, c.issuer, domain.Account(c.account), 15*time.Minute)
}

// call sends body as JSON and pretty-prints the JSON response to the command output.
func (c *client) call(cmd *cobra.Command, method, path string, body any, auth bool) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(cmd.Context(), method, strings.TrimRight(c.baseURL, "/")+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		tok, err := c.bearer()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	hc := c.http
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, raw, "", "  ") == nil {
		raw = pretty.Bytes()
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(raw)))
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	return nil
}
