package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/KattyaCuevas/posts-service/internal/client"
	"github.com/KattyaCuevas/posts-service/internal/lib/logger/sl"
)

const usage = `usage: postctl [-addr URL] [-timeout D] <command> [flags]

commands:
  list                        print titles of all posts
  create -title T -body B     create new post and print its id
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	fs := flag.NewFlagSet("postctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	addr := fs.String("addr", envOr("POSTS_ADDR", "http://localhost:8080"), "posts service address")
	timeout := fs.Duration("timeout", 10*time.Second, "timeout of the whole command")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	c, err := client.New(*addr)
	if err != nil {
		log.Error("failed to create client", sl.Err(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	switch cmd, rest := fs.Arg(0), fs.Args()[1:]; cmd {
	case "list":
		err = list(ctx, c, stdout)
	case "create":
		err = create(ctx, c, rest, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		fs.Usage()
		return 2
	}

	if err != nil {
		log.Error("command failed", sl.Err(err))
		return 1
	}

	return 0
}

func list(ctx context.Context, c *client.Client, w io.Writer) error {
	posts, err := c.List(ctx)
	if err != nil {
		return err
	}

	for _, post := range posts {
		fmt.Fprintln(w, post.Title)
	}

	return nil
}

func create(ctx context.Context, c *client.Client, args []string, w io.Writer, stderr io.Writer) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(stderr)
	title := fs.String("title", "", "post title")
	body := fs.String("body", "", "post body")
	if err := fs.Parse(args); err != nil {
		return err
	}

	post, err := c.Create(ctx, *title, *body)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, post.Id)
	return nil
}

func envOr(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
