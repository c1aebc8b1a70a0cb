package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yhkl-dev/tunecli/auth"
	"github.com/yhkl-dev/tunecli/catalog"
)

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authStatusCmd)

	authLoginCmd.Flags().StringP("token", "t", "", "Catalog bearer token; read from stdin when omitted")
	for _, c := range []*cobra.Command{authLoginCmd, authLogoutCmd, authStatusCmd} {
		c.SetOut(os.Stdout)
	}
}

// authCmd groups the catalog credential commands
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the catalog token stored in the system keyring",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a catalog token in the system keyring",
	Run: func(cmd *cobra.Command, args []string) {
		token := lo.Must(cmd.Flags().GetString("token"))
		if token == "" {
			var err error
			token, err = readToken(cmd)
			handleErr(err)
		}
		handleErr(auth.SetToken(strings.TrimSpace(token)))
		cmd.Println("token saved")
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the catalog token from the system keyring",
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(auth.DeleteToken())
		cmd.Println("signed out")
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where the catalog token comes from and whether it works",
	Run: func(cmd *cobra.Command, args []string) {
		_, cfg, err := loadConfig(cmd)
		handleErr(err)

		_, source, err := auth.Resolve(cfg.Catalog.Token)
		handleErr(err)
		if source == auth.SourceNone {
			cmd.Println("not signed in")
			return
		}
		cmd.Printf("token from %s\n", source)

		cat, err := newCatalog(cfg)
		handleErr(err)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Catalog.Timeout+5*time.Second)
		defer cancel()

		liked, err := cat.Liked(ctx)
		switch {
		case catalog.IsUnauthorized(err):
			cmd.Println("the catalog rejected the token")
		case err != nil:
			handleErr(fmt.Errorf("check token: %w", err))
		default:
			cmd.Printf("signed in, %d liked songs\n", len(liked))
		}
	},
}

// readToken reads the token without echo from a terminal, or a line from a pipe
func readToken(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		cmd.Print("token: ")
		b, err := term.ReadPassword(fd)
		cmd.Println()
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no token given on stdin")
	}
	return line, nil
}
