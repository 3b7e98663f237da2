// Command preview renders the WhatsApp checkout message and deep link for
// a saved cart, without a server.
//
//	preview --cart cart.json --order-type mesa --table 7
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/danielandresolateseguel/server1/internal/cart"
	"github.com/danielandresolateseguel/server1/internal/checkout"
	"github.com/danielandresolateseguel/server1/internal/tenant"
)

type options struct {
	cartPath   string
	configPath string
	tenant     string
	category   string
	payload    bool
	order      checkout.OrderContext
}

func main() {
	var opts options
	pflag.StringVar(&opts.cartPath, "cart", "", "cart JSON file as stored by the page (- for stdin)")
	pflag.StringVar(&opts.configPath, "tenant-config", "", "tenant config JSON file (optional)")
	pflag.StringVar(&opts.tenant, "tenant", "", "tenant slug")
	pflag.StringVar(&opts.category, "category", "gastronomia", "storefront category")
	pflag.BoolVar(&opts.payload, "payload", false, "also print the orders API payload")
	pflag.StringVar(&opts.order.OrderType, "order-type", "", "mesa, direccion, espera or none (default by category)")
	pflag.StringVar(&opts.order.TableNumber, "table", "", "table number")
	pflag.StringVar(&opts.order.Address, "address", "", "delivery address")
	pflag.StringVar(&opts.order.ContactPhone, "phone", "", "delivery contact phone")
	pflag.StringVar(&opts.order.DeliveryName, "name", "", "delivery customer name")
	pflag.StringVar(&opts.order.WaitName, "wait-name", "", "pickup customer name")
	pflag.StringVar(&opts.order.WaitPhone, "wait-phone", "", "pickup customer phone")
	pflag.StringVar(&opts.order.Notes, "notes", "", "order notes")
	pflag.Parse()

	os.Exit(preview(opts, os.Stdout))
}

func preview(opts options, out io.Writer) int {
	log, _ := zap.NewDevelopment()
	defer log.Sync()

	if opts.cartPath == "" {
		log.Error("--cart is required")
		return 2
	}
	if err := run(opts, out); err != nil {
		log.Error("preview failed", zap.Error(err))
		return 1
	}
	return 0
}

func run(opts options, out io.Writer) error {
	items, err := readCart(opts.cartPath)
	if err != nil {
		return err
	}

	var cfg tenant.Config
	if opts.configPath != "" {
		b, err := os.ReadFile(opts.configPath)
		if err != nil {
			return fmt.Errorf("read tenant config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return fmt.Errorf("parse tenant config: %w", err)
		}
	}

	order, err := checkout.Build(items, opts.order, checkout.Settings{
		TenantSlug: opts.tenant,
		Category:   opts.category,
		Config:     cfg,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, order.Message.Text)
	fmt.Fprintln(out)
	if order.URL != "" {
		fmt.Fprintln(out, order.URL)
	} else {
		fmt.Fprintln(out, "(WhatsApp disabled for this tenant)")
	}
	if opts.payload {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(order.Payload)
	}
	return nil
}

func readCart(path string) ([]cart.LineItem, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	var items []cart.LineItem
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("parse cart: %w", err)
	}
	return items, nil
}
