package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/quotecart/internal/cart"
	"github.com/angelmondragon/quotecart/internal/cartsync"
	"github.com/angelmondragon/quotecart/internal/pricing"
	"github.com/angelmondragon/quotecart/internal/totals"
	"github.com/angelmondragon/quotecart/pkg/cartclient"
	"github.com/angelmondragon/quotecart/pkg/config"
	"github.com/angelmondragon/quotecart/pkg/enums"
	"github.com/angelmondragon/quotecart/pkg/logger"
)

type addFile struct {
	Type  enums.ProductType `json:"type"`
	Input pricing.Input     `json:"input"`
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "cartctl", Output: os.Stderr})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "list", "command: list|add|qty|discount|remove|clear")
	owner := flag.String("owner", "", "cart owner id")
	id := flag.String("id", "", "cart item id (qty, discount, remove)")
	value := flag.String("value", "", "new quantity or discount percent")
	file := flag.String("file", "", "JSON line definition for add: {\"type\",\"input\"}")
	force := flag.Bool("force", false, "add even when an identical line exists")
	flag.Parse()

	cfg, err := config.LoadClient()
	requireOK(logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "cartctl",
		Level:       logger.ParseLevel(cfg.LogLevel),
		Output:      os.Stderr,
	})

	client, err := cartclient.NewClient(cfg.Sync.BaseURL, *owner, cartclient.WithTimeout(cfg.Sync.Timeout))
	requireOK(logg, "cart client", err)

	store := cart.NewStore()
	coord := cartsync.New(store, client, cartsync.WithLogger(logg))

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.Sync.Timeout+time.Second)
	defer cancel()
	ctx = logg.WithOwnerID(ctx, *owner)

	_, err = coord.Reload(ctx)
	requireOK(logg, "reload cart", err)

	switch *cmd {
	case "list":
	case "add":
		raw, err := os.ReadFile(*file)
		requireOK(logg, "read line definition", err)
		var def addFile
		requireOK(logg, "decode line definition", json.Unmarshal(raw, &def))
		if def.Type == "" {
			def.Type = cart.TypeFor(def.Input.Variant.Kind)
		}
		local, err := store.Add(cart.Draft{Type: def.Type, Input: def.Input}, cart.AddOptions{Force: *force})
		requireOK(logg, "add line", err)
		if *force {
			_, err = coord.ForceAdd(ctx, local.ID)
		} else {
			_, err = coord.PersistAdd(ctx, local.ID)
		}
		requireOK(logg, "save line", err)
	case "qty":
		qty, err := pricing.ParseQuantity(*value)
		requireOK(logg, "quantity", err)
		_, err = coord.PersistUpdate(ctx, *id, cart.QuantityPatch(qty))
		requireOK(logg, "update quantity", err)
	case "discount":
		pct, err := decimal.NewFromString(*value)
		requireOK(logg, "discount", err)
		_, err = coord.PersistUpdate(ctx, *id, cart.DiscountPatch(pricing.ClampDiscount(pct)))
		requireOK(logg, "update discount", err)
	case "remove":
		requireOK(logg, "remove line", coord.PersistRemove(ctx, *id))
	case "clear":
		requireOK(logg, "clear cart", coord.Clear(ctx))
	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}

	printCart(store.All())
}

func printCart(items []cart.Item) {
	for _, item := range items {
		fmt.Printf("%-38s %-8s %-24s qty=%-4d total=%s\n",
			item.ID, item.Type, item.Input.Variant.Name, item.Input.Quantity, item.Breakdown.Total.StringFixed(2))
	}
	sums := totals.Compute(items)
	fmt.Printf("items=%d subtotal=%s discount=%s gst=%s grand_total=%s\n",
		sums.ItemCount,
		sums.Subtotal.StringFixed(2),
		sums.DiscountTotal.StringFixed(2),
		sums.GSTTotal.StringFixed(2),
		sums.GrandTotal.StringFixed(2),
	)
}

func requireOK(logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), fmt.Sprintf("cartctl failed: %s", step), err)
	os.Exit(1)
}
