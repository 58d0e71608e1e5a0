// Command token issues signed credentials for the file server.
//
//	token -user alice -ttl 1440
//	token -user backup -permanent -persist-all -tags "backup;nightly"
//
// The signing secret is read from the terminal unless -s is given.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/gophfiles/internal/flagx"
	"github.com/dmitrijs2005/gophfiles/internal/server/auth"
	"github.com/dmitrijs2005/gophfiles/internal/server/models"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)

	user := fs.String("user", "", "user id carried by the token")
	secret := fs.String("s", "", "signing secret; prompted for when empty")
	ttl := fs.Int("ttl", 0, "validity in minutes, 0 never expires")
	permanent := fs.Bool("permanent", false, "issue a permanent system credential")
	persistAll := fs.Bool("persist-all", false, "make every upload of the account persistent")
	tags := fs.String("tags", "", "default tags, ';'-separated")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return errors.New("-user is required")
	}

	key := []byte(*secret)
	if len(key) == 0 {
		fmt.Fprint(stderr, "Enter secret: ")
		pw, err := readPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(stderr)
		if err != nil {
			return fmt.Errorf("read secret: %w", err)
		}
		key = pw
	}
	if len(key) == 0 {
		return errors.New("empty secret")
	}

	p := models.Principal{
		UserID:      *user,
		Permanent:   *permanent,
		PersistAll:  *persistAll,
		DefaultTags: flagx.SplitList(*tags),
	}
	token, err := auth.GenerateToken(p, key, time.Duration(*ttl)*time.Minute)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}
