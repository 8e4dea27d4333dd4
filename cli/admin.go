package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"inkwell/app/cache"
	"inkwell/app/config"
	"inkwell/app/middleware"
	"inkwell/app/services"
)

// withBackend runs fn against the configured store and cache.
func (c *CLI) withBackend(fn func(ctx context.Context, b *backend) error) int {
	cfg, ok := c.config()
	if !ok {
		return 1
	}
	ctx := context.Background()
	b, err := openBackend(ctx, cfg)
	if err != nil {
		c.failf("Error: %v\n", err)
		return 1
	}
	defer b.Close()

	if err := fn(ctx, b); err != nil {
		c.failf("Error: %v\n", err)
		return 1
	}
	return 0
}

func (c *CLI) author(args []string) int {
	if len(args) != 2 || (args[0] != "add" && args[0] != "delete") {
		c.failf("Usage: inkwell author add|delete <username>\n")
		return 1
	}
	action, username := args[0], args[1]

	return c.withBackend(func(ctx context.Context, b *backend) error {
		authors := services.NewAuthorService(b.store, b.cache)
		if action == "add" {
			author, err := authors.Create(ctx, username)
			if err != nil {
				return err
			}
			c.okf("Author %s created with id %d\n", author.Username, author.ID)
			return nil
		}
		if err := authors.Delete(ctx, username); err != nil {
			return err
		}
		c.okf("Author %s deleted\n", username)
		c.noteStaleCache(b)
		return nil
	})
}

func (c *CLI) group(args []string) int {
	usage := func() int {
		c.failf("Usage: inkwell group add <slug> <title> <description> | list | delete <slug>\n")
		return 1
	}
	if len(args) < 1 {
		return usage()
	}

	switch args[0] {
	case "add":
		if len(args) != 4 {
			return usage()
		}
		slug, title, description := args[1], args[2], args[3]
		return c.withBackend(func(ctx context.Context, b *backend) error {
			group, err := services.NewGroupService(b.store, b.cache).Create(ctx, title, slug, description)
			if err != nil {
				return err
			}
			c.okf("Group %s created with id %d\n", group.Slug, group.ID)
			return nil
		})
	case "list":
		return c.withBackend(func(ctx context.Context, b *backend) error {
			groups, err := services.NewGroupService(b.store, b.cache).List(ctx)
			if err != nil {
				return err
			}
			if len(groups) == 0 {
				fmt.Fprintln(c.out, "No groups")
				return nil
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSLUG\tTITLE")
			for _, g := range groups {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", g.ID, g.Slug, g.Title)
			}
			return tw.Flush()
		})
	case "delete":
		if len(args) != 2 {
			return usage()
		}
		slug := args[1]
		return c.withBackend(func(ctx context.Context, b *backend) error {
			if err := services.NewGroupService(b.store, b.cache).Delete(ctx, slug); err != nil {
				return err
			}
			c.okf("Group %s deleted; its posts no longer have a group\n", slug)
			c.noteStaleCache(b)
			return nil
		})
	default:
		return usage()
	}
}

// noteStaleCache warns after a delete that a running server's in-process
// cache was out of reach. Redis is shared and was cleared directly.
func (c *CLI) noteStaleCache(b *backend) {
	if b.cfg.Cache != cache.KindMemory {
		return
	}
	c.warnf("Note: a running server with %sCACHE=%s may serve cached pages for up to %s\n",
		config.Prefix, cache.KindMemory, b.cfg.CacheTTL)
}

// session prints a cookie identifying username, signed with the server's
// session key, for use with curl -b.
func (c *CLI) session(args []string) int {
	if len(args) != 1 {
		c.failf("Usage: inkwell session <username>\n")
		return 1
	}
	username := args[0]

	cfg, ok := c.config()
	if !ok {
		return 1
	}
	if cfg.SessionKey == "" {
		c.failf("Error: %sSESSION_KEY must be set to mint sessions the server accepts\n", config.Prefix)
		return 1
	}

	return c.withBackend(func(ctx context.Context, b *backend) error {
		if _, err := services.NewAuthorService(b.store, b.cache).GetByUsername(ctx, username); err != nil {
			return err
		}
		cookie, err := middleware.IssueCookie(middleware.NewSessionStore([]byte(cfg.SessionKey)), username)
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}
		fmt.Fprintf(c.out, "%s=%s\n", cookie.Name, cookie.Value)
		return nil
	})
}
