package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/alex-user-go/shipcompare/internal/api"
	"github.com/alex-user-go/shipcompare/internal/app"
	"github.com/alex-user-go/shipcompare/internal/compare"
	"github.com/alex-user-go/shipcompare/internal/config"
	"github.com/alex-user-go/shipcompare/internal/query"
	"github.com/alex-user-go/shipcompare/internal/service"
	"github.com/alex-user-go/shipcompare/internal/session"
)

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitAuthError    = 3
)

func main() {
	cliApp := &cli.App{
		Name:    "shipcompare",
		Usage:   "Compare retailer shipping offers by destination country",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration file path",
				EnvVars: []string{"SHIPCOMPARE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "Backend API base URL (overrides config)",
				EnvVars: []string{"SHIPCOMPARE_BASE_URL"},
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit JSON instead of tables",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in and store the session locally",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true, Usage: "Account email"},
					&cli.StringFlag{Name: "password", Required: true, Usage: "Account password"},
				},
				Action: loginAction,
			},
			{
				Name:  "register",
				Usage: "Create an account and store its session locally",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true, Usage: "Display name"},
					&cli.StringFlag{Name: "email", Required: true, Usage: "Account email"},
					&cli.StringFlag{Name: "password", Required: true, Usage: "Account password"},
				},
				Action: registerAction,
			},
			{
				Name:   "logout",
				Usage:  "Invalidate the session server-side and forget it locally",
				Action: logoutAction,
			},
			{
				Name:   "whoami",
				Usage:  "Show the logged-in account",
				Action: whoamiAction,
			},
			{
				Name:  "retailers",
				Usage: "List retailers",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Filter by search query"},
				},
				Action: retailersAction,
			},
			{
				Name:   "search",
				Usage:  "Interactive retailer search (reads queries from stdin, debounced)",
				Action: searchAction,
			},
			{
				Name:   "countries",
				Usage:  "List destination countries",
				Action: countriesAction,
			},
			{
				Name:  "compare",
				Usage: "Compare shipping offers for a set of retailers and one country",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "retailer",
						Aliases: []string{"r"},
						Usage:   "Retailer ID (repeat for several, max 10)",
					},
					&cli.StringFlag{
						Name:     "country",
						Aliases:  []string{"C"},
						Required: true,
						Usage:    "Destination country ID",
					},
				},
				Action: compareAction,
			},
			{
				Name:   "history",
				Usage:  "List stored comparisons",
				Action: historyAction,
			},
			{
				Name:      "show",
				Usage:     "Show one stored comparison, ranked",
				ArgsUsage: "<comparison-id>",
				Action:    showAction,
			},
			{
				Name:  "delivery-data",
				Usage: "List raw delivery data rows",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "retailer", Usage: "Filter by retailer ID"},
					&cli.StringFlag{Name: "country", Usage: "Filter by country ID"},
					&cli.StringFlag{Name: "method", Usage: "Filter by method name"},
				},
				Action: deliveryDataAction,
			},
			{
				Name:      "upload",
				Usage:     "Upload a delivery-data CSV file",
				ArgsUsage: "<file.csv>",
				Action:    uploadAction,
			},
			{
				Name:   "serve",
				Usage:  "Run the local comparison gateway",
				Action: serveAction,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if coder, ok := err.(cli.ExitCoder); ok {
		return coder.ExitCode()
	}
	return ExitGeneralError
}

// env bundles the wired client stack for one CLI invocation.
type env struct {
	cfg      *config.Config
	sessions *session.Store
	backend  *api.Client
	cache    *query.Cache
	svc      *service.Service
}

func (e *env) close() {
	e.cache.Close()
	_ = e.sessions.Close()
}

// buildEnv loads config, opens the session store, and wires the service.
func buildEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), ExitUsageError)
	}
	if base := c.String("base-url"); base != "" {
		cfg.Backend.BaseURL = base
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Session.Path), 0o700); err != nil {
		return nil, err
	}
	sessions, err := session.Open(cfg.Session.Path)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	backend := api.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, sessions, logger)
	cache := query.New()
	svc := service.New(backend, cache, nil, logger)

	return &env{
		cfg:      cfg,
		sessions: sessions,
		backend:  backend,
		cache:    cache,
		svc:      svc,
	}, nil
}

func serveAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), ExitUsageError)
	}
	if base := c.String("base-url"); base != "" {
		cfg.Backend.BaseURL = base
	}
	return app.Run(cfg)
}

func loginAction(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	auth, err := e.backend.Login(c.Context, c.String("email"), c.String("password"))
	if err != nil {
		return authExit(err)
	}
	if err := e.sessions.Save(session.Session{Token: auth.Token, User: auth.User}); err != nil {
		return err
	}
	fmt.Printf("Logged in as %s (%s plan)\n", auth.User.Email, auth.User.Plan)
	return nil
}

func registerAction(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	auth, err := e.backend.Register(c.Context, c.String("name"), c.String("email"), c.String("password"))
	if err != nil {
		return authExit(err)
	}
	if err := e.sessions.Save(session.Session{Token: auth.Token, User: auth.User}); err != nil {
		return err
	}
	fmt.Printf("Registered %s\n", auth.User.Email)
	return nil
}

func logoutAction(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	// Best effort server-side; the local session goes away regardless.
	if err := e.backend.Logout(c.Context); err != nil {
		fmt.Fprintf(os.Stderr, "warning: server logout failed: %v\n", err)
	}
	if err := e.sessions.Clear(); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

func whoamiAction(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	user, err := e.backend.Me(c.Context)
	if err != nil {
		return authExit(err)
	}
	return printJSONOr(c, user, func() {
		fmt.Printf("%s <%s>  plan=%s\n", user.Name, user.Email, user.Plan)
	})
}

func compareAction(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	req := compare.ComparisonRequest{
		Retailers: c.StringSlice("retailer"),
		Country:   c.String("country"),
	}
	ranked, err := e.svc.CompareAndRank(c.Context, req)
	if err != nil {
		return serviceExit(err)
	}
	return printJSONOr(c, ranked, func() { printRanked(ranked) })
}

func historyAction(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	items, err := e.svc.History(c.Context)
	if err != nil {
		return serviceExit(err)
	}
	return printJSONOr(c, items, func() { printHistory(items) })
}

func showAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: shipcompare show <comparison-id>", ExitUsageError)
	}
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	ranked, err := e.svc.HistoryItemRanked(c.Context, c.Args().First())
	if err != nil {
		return serviceExit(err)
	}
	return printJSONOr(c, ranked, func() { printRanked(ranked) })
}

func retailersAction(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	var retailers []compare.Retailer
	if q := c.String("search"); q != "" {
		retailers, err = e.svc.SearchRetailers(c.Context, q)
	} else {
		retailers, err = e.svc.Retailers(c.Context)
	}
	if err != nil {
		return serviceExit(err)
	}
	return printJSONOr(c, retailers, func() { printRetailers(retailers) })
}

func countriesAction(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	countries, err := e.svc.Countries(c.Context)
	if err != nil {
		return serviceExit(err)
	}
	return printJSONOr(c, countries, func() { printCountries(countries) })
}

func deliveryDataAction(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	rows, err := e.svc.DeliveryData(c.Context, api.DeliveryDataFilters{
		RetailerID: c.String("retailer"),
		CountryID:  c.String("country"),
		Method:     c.String("method"),
	})
	if err != nil {
		return serviceExit(err)
	}
	return printJSONOr(c, rows, func() { printDeliveryData(rows) })
}

func uploadAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: shipcompare upload <file.csv>", ExitUsageError)
	}
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	res, err := e.backend.UploadCSV(c.Context, c.Args().First())
	if err != nil {
		return serviceExit(err)
	}
	fmt.Printf("%s (created=%d updated=%d total=%d)\n", res.Message, res.Created, res.Updated, res.Total)
	return nil
}
