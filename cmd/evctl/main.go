package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/erazemk/evidenca/internal/client"
	"github.com/erazemk/evidenca/internal/config"
	"github.com/erazemk/evidenca/internal/ledger"
	"github.com/erazemk/evidenca/internal/model"
)

const usage = `Usage: evctl [flags] <command> [args]

Flags:
  -s, -server <url>   server URL (default: $EVIDENCA_URL or http://localhost:8080)
  -t, -token <token>  bearer token (default: $EVIDENCA_TOKEN)

Commands:
  login -u <user> [-p <password>]          print a token for later commands
  items [-b <block>]                       list items
  records [-b <block>] [-status <status>]  list records (pending, approved, declined)
  request [-b <block>] -item <id> -kind <kind> -n <quantity> [-purpose <text>]
                                           file an adjustment request
  approve [-b <block>] <record id>         approve a pending record
  decline [-b <block>] <record id>         decline a pending record
`

func main() {
	// A .env file may carry EVIDENCA_URL and EVIDENCA_TOKEN.
	if err := config.LoadEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("evctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	server := envOr("EVIDENCA_URL", "http://localhost:8080")
	fs.StringVar(&server, "server", server, "")
	fs.StringVar(&server, "s", server, "")

	token := os.Getenv("EVIDENCA_TOKEN")
	fs.StringVar(&token, "token", token, "")
	fs.StringVar(&token, "t", token, "")

	if err := fs.Parse(os.Args[1:]); err != nil || fs.NArg() == 0 {
		fmt.Fprint(os.Stdout, usage)
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	c := client.New(server, token, client.Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, c, fs.Arg(0), fs.Args()[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(ctx context.Context, c *client.Client, cmd string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	block := fs.String("b", model.BlockHead, "inventory block")

	switch cmd {
	case "login":
		user := fs.String("u", "", "username")
		password := fs.String("p", os.Getenv("EVIDENCA_PASSWORD"), "password")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *user == "" || *password == "" {
			return errors.New("login needs -u and -p (or EVIDENCA_PASSWORD)")
		}
		u, err := c.Login(ctx, *user, *password)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "logged in as %s (%s, block %s)\n", u.Username, u.Role, u.AccessBlock)
		fmt.Fprintln(out, c.Token())
		return nil

	case "items":
		if err := fs.Parse(args); err != nil {
			return err
		}
		items, err := c.ListItems(ctx, *block)
		if err != nil {
			return err
		}
		printItems(out, items)
		return nil

	case "records":
		status := fs.String("status", "", "status filter")
		if err := fs.Parse(args); err != nil {
			return err
		}
		records, err := c.ListRecords(ctx, *block, *status)
		if err != nil {
			return err
		}
		printRecords(out, records)
		return nil

	case "request":
		var in client.RequestInput
		fs.Int64Var(&in.ItemID, "item", 0, "item id")
		fs.StringVar(&in.Kind, "kind", "", "adjustment kind")
		fs.IntVar(&in.Amount, "n", 0, "quantity")
		fs.StringVar(&in.Purpose, "purpose", "", "purpose")
		fs.StringVar(&in.Location, "location", "", "location")
		fs.StringVar(&in.Date, "date", "", "date")
		if err := fs.Parse(args); err != nil {
			return err
		}
		rec, err := c.SubmitRequest(ctx, *block, in)
		var insufficient *ledger.InsufficientError
		if errors.As(err, &insufficient) {
			return fmt.Errorf("request refused: %s holds %d, %d requested", insufficient.Bucket, insufficient.Available, insufficient.Requested)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "record %d: %s\n", rec.ID, rec.Status)
		return nil

	case "approve", "decline":
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return fmt.Errorf("%s needs exactly one record id", cmd)
		}
		id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid record id %q", fs.Arg(0))
		}

		var rec *model.Record
		if cmd == "approve" {
			rec, err = c.Approve(ctx, *block, id)
		} else {
			rec, err = c.Decline(ctx, *block, id)
		}
		var insufficient *ledger.InsufficientError
		if errors.As(err, &insufficient) {
			return fmt.Errorf("approval refused, item changed since the request: %s holds %d, %d requested",
				insufficient.Bucket, insufficient.Available, insufficient.Requested)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "record %d: %s\n", rec.ID, rec.Status)
		return nil
	}

	return fmt.Errorf("unknown command %q", cmd)
}

func printItems(out io.Writer, items []model.Item) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tSTORE\tUSE\tFAULTY STORE\tFAULTY USE\tTRANSFER\tTOTAL")
	for _, it := range items {
		q := it.Quantity
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			it.ID, it.Name, it.Category, q.Store, q.Use, q.FaultyStore, q.FaultyUse, q.Transfer, it.Total)
	}
	tw.Flush()
}

func printRecords(out io.Writer, records []model.Record) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tITEM\tKIND\tQUANTITY\tSTATUS\tREQUESTED BY\tCREATED")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			r.ID, r.ItemName, r.Kind, r.Amount, r.Status, r.RequestedByName, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}
