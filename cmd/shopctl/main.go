package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/dshills/shopctl/internal/api"
	"github.com/dshills/shopctl/internal/cart"
	"github.com/dshills/shopctl/internal/checkout"
	"github.com/dshills/shopctl/internal/config"
	"github.com/dshills/shopctl/internal/render"
	"github.com/dshills/shopctl/internal/session"
	"github.com/dshills/shopctl/internal/tui"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

// codeError returns an exitErr for the given code.
func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// rootFlags holds the persistent flags shared by every command.
type rootFlags struct {
	format  string
	verbose bool
}

// app wires the components together for one command invocation.
type app struct {
	client   *api.Client
	sessions *session.Manager
	syncer   *cart.Synchronizer
	orch     *checkout.Orchestrator
	renderer render.Renderer
	verbose  bool
}

// newApp builds the component graph: config, API client, session manager
// (hooked to the client's unauthorized signal), cart synchronizer and
// checkout orchestrator.
func newApp(flags rootFlags) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, codeError(3, "loading config: %s", err)
	}

	renderer, err := render.NewRenderer(flags.format)
	if err != nil {
		return nil, codeError(3, "invalid format: %s", err)
	}

	logf := func(format string, args ...any) {
		logVerbose(flags.verbose, format, args...)
	}

	client := api.New(cfg.BaseURL, cfg.Timeout)
	store, err := session.NewFileStore(cfg.StateDir)
	if err != nil {
		return nil, codeError(3, "opening session store: %s", err)
	}
	sessions := session.NewManager(client, store, logf)
	// An expired or invalidated token on any call forces a local logout.
	client.OnUnauthorized(func() {
		fmt.Fprintln(os.Stderr, "Session expired; logging out.")
		sessions.ForceLogout()
	})

	syncer := cart.New(client, logf)
	syncer.Subscribe(func(snap cart.Snapshot) {
		logVerbose(flags.verbose, "cart count: %d", snap.Count)
	})
	orch := checkout.New(client, syncer, logf)

	return &app{
		client:   client,
		sessions: sessions,
		syncer:   syncer,
		orch:     orch,
		renderer: renderer,
		verbose:  flags.verbose,
	}, nil
}

// requireSession restores the persisted session or fails with a login hint.
func (a *app) requireSession() (*session.Session, error) {
	sess, err := a.sessions.Restore()
	if err != nil {
		return nil, codeError(3, "restoring session: %s", err)
	}
	if sess == nil {
		return nil, codeError(2, "not logged in: run `shopctl login` first")
	}
	return sess, nil
}

// emit writes rendered bytes to stdout with a trailing newline.
func emit(out []byte) error {
	if _, err := os.Stdout.Write(out); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if len(out) > 0 && out[len(out)-1] != '\n' {
		fmt.Fprintln(os.Stdout)
	}
	return nil
}

// logVerbose prints a step to stderr when verbose is enabled.
func logVerbose(verbose bool, format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// promptPassword reads a password from stdin when it was not passed as a
// flag.
func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// parseQuantity parses a positive integer quantity argument.
func parseQuantity(s string) (int, error) {
	q, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("quantity %q is not a number", s)
	}
	if q < 1 {
		return 0, fmt.Errorf("quantity must be at least 1, got %d", q)
	}
	return q, nil
}

func main() {
	var flags rootFlags

	root := &cobra.Command{
		Use:     "shopctl",
		Short:   "Storefront client for the ShopHub API",
		Long:    "shopctl browses the catalog, manages a server-persisted shopping cart and places orders against a remote storefront API.",
		Version: version,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.format, "format", "text", "Output format: text or json")
	pf.BoolVar(&flags.verbose, "verbose", false, "Print processing steps to stderr")

	root.AddCommand(
		newLoginCmd(&flags),
		newRegisterCmd(&flags),
		newLogoutCmd(&flags),
		newWhoamiCmd(&flags),
		newItemsCmd(&flags),
		newCartCmd(&flags),
		newCheckoutCmd(&flags),
		newOrdersCmd(&flags),
		newShopCmd(&flags),
	)

	if err := root.Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		// cobra already printed the error
		os.Exit(1)
	}
}

func newLoginCmd(flags *rootFlags) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and persist the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*flags)
			if err != nil {
				return err
			}
			if password == "" {
				if password, err = promptPassword(); err != nil {
					return codeError(3, "%s", err)
				}
			}
			sess, err := a.sessions.Login(cmd.Context(), api.Credentials{Username: username, Password: password})
			if err != nil {
				if api.IsAlreadyActive(err) {
					return codeError(2, "already logged in on another device; log out there first")
				}
				return codeError(2, "login failed: %s", err)
			}
			fmt.Printf("Logged in as %s\n", sess.User.Username)
			// Warm the cart count so the badge is right from the start.
			if snap, err := a.syncer.Refresh(cmd.Context()); err == nil {
				fmt.Printf("Cart: %d item(s)\n", snap.Count)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (prompted when omitted)")
	cobra.CheckErr(cmd.MarkFlagRequired("username"))
	return cmd
}

func newRegisterCmd(flags *rootFlags) *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account (does not log in)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*flags)
			if err != nil {
				return err
			}
			if password == "" {
				if password, err = promptPassword(); err != nil {
					return codeError(3, "%s", err)
				}
			}
			reg := api.Registration{Username: username, Email: email, Password: password}
			if err := a.sessions.Register(cmd.Context(), reg); err != nil {
				return codeError(2, "registration failed: %s", err)
			}
			fmt.Println("Registration successful! Please log in.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Account username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (prompted when omitted)")
	cobra.CheckErr(cmd.MarkFlagRequired("username"))
	cobra.CheckErr(cmd.MarkFlagRequired("email"))
	return cmd
}

func newLogoutCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session locally and, best-effort, server-side",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*flags)
			if err != nil {
				return err
			}
			// Restore silently: logout must clear local state even when no
			// valid session can be restored or the server is unreachable.
			if _, err := a.sessions.Restore(); err != nil {
				logVerbose(a.verbose, "restore before logout: %s", err)
			}
			a.sessions.Logout(cmd.Context())
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session's user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*flags)
			if err != nil {
				return err
			}
			sess, err := a.requireSession()
			if err != nil {
				return err
			}
			user, err := a.client.Profile(cmd.Context())
			if err != nil {
				// The server may be unreachable; fall back to the persisted
				// identity, which is all whoami promises.
				logVerbose(a.verbose, "profile fetch failed: %s", err)
				user = &sess.User
			}
			fmt.Printf("%s (%s)\n", user.Username, user.ID)
			return nil
		},
	}
}

func newItemsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "items [item-id]",
		Short: "Browse the catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*flags)
			if err != nil {
				return err
			}
			if _, err := a.requireSession(); err != nil {
				return err
			}
			if len(args) == 1 {
				item, err := a.client.GetItem(cmd.Context(), args[0])
				if err != nil {
					return codeError(2, "fetching item: %s", err)
				}
				out, err := a.renderer.Item(item)
				if err != nil {
					return codeError(3, "rendering item: %s", err)
				}
				return emit(out)
			}
			items, err := a.client.ListItems(cmd.Context())
			if err != nil {
				return codeError(2, "fetching items: %s", err)
			}
			out, err := a.renderer.Items(items)
			if err != nil {
				return codeError(3, "rendering items: %s", err)
			}
			return emit(out)
		},
	}
}

func newCartCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and edit the shopping cart",
	}

	var addQty int
	addCmd := &cobra.Command{
		Use:   "add <item-id>",
		Short: "Add an item to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCartMutation(*flags, func(ctx context.Context, a *app) error {
				return a.syncer.AddItem(ctx, args[0], addQty)
			})
		},
	}
	addCmd.Flags().IntVarP(&addQty, "qty", "n", 1, "Quantity to add")

	updateCmd := &cobra.Command{
		Use:   "update <item-id> <quantity>",
		Short: "Set an item's quantity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := parseQuantity(args[1])
			if err != nil {
				return codeError(3, "%s (use `cart remove` to drop a line)", err)
			}
			return runCartMutation(*flags, func(ctx context.Context, a *app) error {
				return a.syncer.UpdateQuantity(ctx, args[0], qty)
			})
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <item-id>",
		Short: "Remove an item from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCartMutation(*flags, func(ctx context.Context, a *app) error {
				return a.syncer.RemoveItem(ctx, args[0])
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCartMutation(*flags, func(ctx context.Context, a *app) error {
				return a.syncer.Clear(ctx)
			})
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*flags)
			if err != nil {
				return err
			}
			if _, err := a.requireSession(); err != nil {
				return err
			}
			snap, err := a.syncer.Refresh(cmd.Context())
			if err != nil {
				return codeError(2, "%s", err)
			}
			out, err := a.renderer.Cart(snap)
			if err != nil {
				return codeError(3, "rendering cart: %s", err)
			}
			return emit(out)
		},
	}

	cmd.AddCommand(showCmd, addCmd, updateCmd, removeCmd, clearCmd)
	return cmd
}

// runCartMutation runs one synchronizer mutation and prints the refreshed
// cart that results from it.
func runCartMutation(flags rootFlags, fn func(context.Context, *app) error) error {
	a, err := newApp(flags)
	if err != nil {
		return err
	}
	if _, err := a.requireSession(); err != nil {
		return err
	}
	ctx := context.Background()
	if err := fn(ctx, a); err != nil {
		return codeError(2, "%s", err)
	}
	out, err := a.renderer.Cart(a.syncer.Snapshot())
	if err != nil {
		return codeError(3, "rendering cart: %s", err)
	}
	return emit(out)
}

func newCheckoutCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Convert the cart into an order",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*flags)
			if err != nil {
				return err
			}
			if _, err := a.requireSession(); err != nil {
				return err
			}
			// Seed the orchestrator's empty-cart guard with a fresh read.
			if _, err := a.syncer.Refresh(cmd.Context()); err != nil {
				return codeError(2, "%s", err)
			}
			res, err := a.orch.Checkout(cmd.Context())
			if err != nil {
				if api.IsKind(err, api.KindEmptyCart) {
					return codeError(2, "cart is empty; add items to checkout")
				}
				return codeError(2, "checkout failed: %s", err)
			}
			if res.OrderID != "" {
				fmt.Printf("Order placed successfully! Order ID: %s\n", res.OrderID)
			} else {
				fmt.Println("Order placed successfully!")
			}
			return nil
		},
	}
}

func newOrdersCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "orders [order-id]",
		Short: "Show order history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*flags)
			if err != nil {
				return err
			}
			if _, err := a.requireSession(); err != nil {
				return err
			}
			if len(args) == 1 {
				order, err := a.client.GetOrder(cmd.Context(), args[0])
				if err != nil {
					return codeError(2, "fetching order: %s", err)
				}
				out, err := a.renderer.Order(order)
				if err != nil {
					return codeError(3, "rendering order: %s", err)
				}
				return emit(out)
			}
			orders, err := a.client.ListOrders(cmd.Context())
			if err != nil {
				return codeError(2, "fetching orders: %s", err)
			}
			out, err := a.renderer.Orders(orders)
			if err != nil {
				return codeError(3, "rendering orders: %s", err)
			}
			return emit(out)
		},
	}
}

func newShopCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "shop",
		Short: "Open the interactive storefront",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*flags)
			if err != nil {
				return err
			}
			sess, err := a.requireSession()
			if err != nil {
				return err
			}
			model := tui.New(sess.User, a.syncer, a.orch, a.client, a.client)
			final, err := tea.NewProgram(model).Run()
			if err != nil {
				return codeError(3, "running storefront: %s", err)
			}
			if m, ok := final.(tui.Model); ok && m.LoggedOut {
				a.sessions.ForceLogout()
				return codeError(2, "session expired; please log in again")
			}
			return nil
		},
	}
}
