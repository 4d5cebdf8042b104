package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"storefront-client/internal/infrastructure/config"
	"storefront-client/internal/infrastructure/external/shopapi"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadFromFile(*cfgPath)
	if err != nil {
		log.Fatalf("CRITICAL: load config failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, os.Stdout)
	if err != nil {
		log.Fatalf("init client failed: %v", err)
	}
	defer a.Close()

	if err := a.run(ctx, flag.Args()); err != nil {
		if fields := shopapi.FieldErrors(err); len(fields) > 0 {
			for k, v := range fields {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", k, v)
			}
		}
		if errors.Is(err, errUsage) {
			usage()
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: shopctl [-config config.yaml] <command> [flags]

Commands:
  login -email E -password P     sign in and keep the session
  register -email E -password P  create an account and sign in
  logout                         sign out and clear stored credentials
  me                             show the signed-in user
  profile [-name -phone -address -password -new-password]
  avatar <file>                  upload a profile picture
  categories                     list categories
  products [-page -limit -sort -order -name -category -price-min -price-max -rating]
  product <name-id|id>           show a single product
  cart                           list cart items
  add-to-cart -product ID [-count N]
  update-cart -product ID -count N
  remove-from-cart <purchase-id>...
  buy <product-id[:count]>...
  purchases [-status N]          list orders (0 = all, -1 = cart)
`)
}
