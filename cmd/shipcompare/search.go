package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/urfave/cli/v2"

	"github.com/alex-user-go/shipcompare/internal/api"
	"github.com/alex-user-go/shipcompare/internal/compare"
	"github.com/alex-user-go/shipcompare/internal/query"
)

// searchAction reads search queries from stdin, one per line, and prints
// matching retailers. Input is debounced so fast consecutive lines issue one
// fetch, and each new query cancels the fetch for the previous one.
func searchAction(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	deb := query.NewDebouncer(query.DefaultSearchDelay)
	defer deb.Stop()

	var (
		mu         sync.Mutex
		cancelPrev context.CancelFunc
	)

	fmt.Fprintln(os.Stderr, "Type a retailer name and press enter (ctrl-d to quit)")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		q := strings.TrimSpace(scanner.Text())
		if q == "" {
			continue
		}

		deb.Do(func() {
			mu.Lock()
			if cancelPrev != nil {
				cancelPrev()
			}
			ctx, cancel := context.WithCancel(c.Context)
			cancelPrev = cancel
			mu.Unlock()

			retailers, err := e.svc.SearchRetailers(ctx, q)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					fmt.Fprintf(os.Stderr, "search failed: %v\n", err)
				}
				return
			}
			if len(retailers) == 0 {
				fmt.Printf("%q: no matches\n", q)
				return
			}
			fmt.Printf("%q:\n", q)
			for _, r := range retailers {
				fmt.Printf("  %s  %s\n", r.ID, r.Name)
			}
		})
	}

	mu.Lock()
	if cancelPrev != nil {
		cancelPrev()
	}
	mu.Unlock()

	return scanner.Err()
}

// authExit maps auth failures to the auth exit code.
func authExit(err error) error {
	var authErr api.AuthError
	if errors.As(err, &authErr) {
		return cli.Exit(fmt.Sprintf("authentication failed: %v", err), ExitAuthError)
	}
	return serviceExit(err)
}

// serviceExit maps the error taxonomy to exit codes and user-facing text.
func serviceExit(err error) error {
	var validationErr compare.ValidationError
	if errors.As(err, &validationErr) {
		return cli.Exit(validationErr.Msg, ExitUsageError)
	}
	var authErr api.AuthError
	if errors.As(err, &authErr) {
		return cli.Exit("session expired, run `shipcompare login`", ExitAuthError)
	}
	var netErr api.NetworkError
	if errors.As(err, &netErr) {
		return cli.Exit("backend unreachable, check your connection", ExitGeneralError)
	}
	return cli.Exit(err.Error(), ExitGeneralError)
}
