package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmeshcher/gophershop/internal/model"
	"github.com/mmeshcher/gophershop/internal/session"
)

// store описывает операции с документами пользователя, которые нужны оболочке.
type store interface {
	UserData(ctx context.Context) (model.Record, error)
	PutUserData(ctx context.Context, data model.Record) error
	Orders(ctx context.Context) ([]model.Order, error)
	PlaceOrder(ctx context.Context, items []model.OrderItem) (*model.Order, error)
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
}

// errReported означает, что команда уже вывела свою ошибку.
var errReported = errors.New("reported")

type shell struct {
	auth  *session.AuthSession
	store store
	out   io.Writer
}

func newShell(auth *session.AuthSession, st store, out io.Writer) *shell {
	return &shell{auth: auth, store: st, out: out}
}

// exactArgs проверяет число аргументов и при ошибке возвращает строку использования команды.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return fmt.Errorf("usage: %s", cmd.UseLine())
		}
		return nil
	}
}

func jsonArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", cmd.UseLine())
	}
	return nil
}

// rootCmd собирает дерево команд заново на каждый запуск, чтобы флаги не переживали предыдущую команду.
func (sh *shell) rootCmd() *cobra.Command {
	auth := sh.auth

	root := &cobra.Command{
		Use:               "shopctl",
		Short:             "Command line client for gophershop",
		SilenceErrors:     true,
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}
	root.SetOut(sh.out)
	root.SetErr(sh.out)

	root.AddCommand(
		&cobra.Command{
			Use:   "whoami",
			Short: "Show the signed-in user and role",
			Args:  exactArgs(0),
			RunE:  sh.whoami,
		},
		&cobra.Command{
			Use:   "login EMAIL PASSWORD",
			Short: "Sign in",
			Args:  exactArgs(2),
			RunE: func(cmd *cobra.Command, a []string) error {
				return sh.report(auth.SignIn(cmd.Context(), a[0], a[1]))
			},
		},
		&cobra.Command{
			Use:   "signup EMAIL PASSWORD",
			Short: "Create an account",
			Args:  exactArgs(2),
			RunE: func(cmd *cobra.Command, a []string) error {
				return sh.report(auth.SignUp(cmd.Context(), a[0], a[1]))
			},
		},
		&cobra.Command{
			Use:   "signup-admin EMAIL PASSWORD NAME CODE",
			Short: "Create an administrator account",
			Args:  exactArgs(4),
			RunE: func(cmd *cobra.Command, a []string) error {
				return sh.report(auth.SignUpAdmin(cmd.Context(), a[0], a[1], a[2], a[3]))
			},
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Sign out",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, _ []string) error {
				return sh.report(auth.SignOut(cmd.Context()))
			},
		},
		&cobra.Command{
			Use:   "reset EMAIL",
			Short: "Request a password reset",
			Args:  exactArgs(1),
			RunE: func(cmd *cobra.Command, a []string) error {
				return sh.report(auth.SendPasswordReset(cmd.Context(), a[0]))
			},
		},
		&cobra.Command{
			Use:   "confirm-reset TOKEN PASSWORD",
			Short: "Set a new password with a reset token",
			Args:  exactArgs(2),
			RunE: func(cmd *cobra.Command, a []string) error {
				return sh.check(sh.store.ConfirmPasswordReset(cmd.Context(), a[0], a[1]))
			},
		},
		&cobra.Command{
			Use:   "passwd NEW_PASSWORD",
			Short: "Change the password of the signed-in user",
			Args:  exactArgs(1),
			RunE: func(cmd *cobra.Command, a []string) error {
				return sh.report(auth.UpdatePassword(cmd.Context(), a[0]))
			},
		},
		&cobra.Command{
			Use:   "reauth EMAIL PASSWORD",
			Short: "Confirm the credentials of the signed-in user",
			Args:  exactArgs(2),
			RunE: func(cmd *cobra.Command, a []string) error {
				return sh.report(auth.Reauthenticate(cmd.Context(), a[0], a[1]))
			},
		},
		&cobra.Command{
			Use:   "delete-account",
			Short: "Delete the signed-in account",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, _ []string) error {
				return sh.report(auth.DeleteAccount(cmd.Context()))
			},
		},
		&cobra.Command{
			Use:   "orders",
			Short: "List order history",
			Args:  exactArgs(0),
			RunE:  sh.orders,
		},
		&cobra.Command{
			Use:   "order JSON_ARRAY_OF_ITEMS",
			Short: "Place an order",
			Args:  jsonArgs,
			RunE:  sh.placeOrder,
		},
		&cobra.Command{
			Use:   "data",
			Short: "Print the user data document",
			Args:  exactArgs(0),
			RunE:  sh.data,
		},
		&cobra.Command{
			Use:   "set-data JSON_OBJECT",
			Short: "Replace the user data document",
			Args:  jsonArgs,
			RunE:  sh.setData,
		},
	)

	return root
}

// run выполняет команды построчно и возвращает false, если хотя бы одна завершилась ошибкой.
func (sh *shell) run(ctx context.Context, in io.Reader) bool {
	ok := true
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return false
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !sh.exec(ctx, splitLine(line)) {
			ok = false
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(sh.out, "error: %v\n", err)
		return false
	}
	return ok
}

// splitLine делит строку на команду и аргументы. Для команд с JSON весь остаток строки считается одним аргументом.
func splitLine(line string) []string {
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	if name == "order" || name == "set-data" {
		if rest == "" {
			return []string{name}
		}
		return []string{name, rest}
	}
	return append([]string{name}, strings.Fields(rest)...)
}

func (sh *shell) exec(ctx context.Context, args []string) bool {
	if len(args) == 0 {
		return true
	}

	root := sh.rootCmd()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return true
	}
	if !errors.Is(err, errReported) {
		fmt.Fprintln(sh.out, err)
	}
	return false
}

// report печатает итог операции сессии. Ошибка берётся из состояния сессии.
func (sh *shell) report(ok bool) error {
	if !ok {
		fmt.Fprintf(sh.out, "error: %s\n", sh.auth.LastError())
		sh.auth.ClearError()
		return errReported
	}
	fmt.Fprintln(sh.out, "ok")
	return nil
}

func (sh *shell) check(err error) error {
	if err != nil {
		fmt.Fprintf(sh.out, "error: %v\n", err)
		return errReported
	}
	fmt.Fprintln(sh.out, "ok")
	return nil
}

func (sh *shell) printState(st session.State) {
	user := "-"
	if st.User != nil {
		user = st.User.Email
	}
	fmt.Fprintf(sh.out, "[session] user=%s admin=%t loading=%t error=%q\n", user, st.IsAdmin, st.Loading, st.LastError)
}

func (sh *shell) whoami(_ *cobra.Command, _ []string) error {
	<-sh.auth.Ready()

	st := sh.auth.State()
	if st.User == nil {
		fmt.Fprintln(sh.out, "not signed in")
		return nil
	}

	role := "customer"
	if st.IsAdmin {
		role = "admin"
	}
	name := st.User.DisplayName
	if name == "" {
		name = st.User.Email
	}
	fmt.Fprintf(sh.out, "%s <%s> %s uid=%s\n", name, st.User.Email, role, st.User.UID)
	return nil
}

func (sh *shell) orders(cmd *cobra.Command, _ []string) error {
	orders, err := sh.store.Orders(cmd.Context())
	if err != nil {
		return sh.check(err)
	}

	if len(orders) == 0 {
		fmt.Fprintln(sh.out, "no orders")
		return nil
	}

	for _, o := range orders {
		fmt.Fprintf(sh.out, "%s  %s  %s  items=%d  total=%.2f",
			o.CreatedAt.Format("2006-01-02 15:04"), o.ID, o.Status, o.ItemCount(), o.Total())
		if savings := o.Savings(); savings > 0 {
			fmt.Fprintf(sh.out, "  saved=%.2f", savings)
		}
		fmt.Fprintln(sh.out)

		for _, it := range o.Items {
			sh.printItem(it)
		}
	}
	return nil
}

func (sh *shell) printItem(it model.OrderItem) {
	fmt.Fprintf(sh.out, "    %d x %s @ %s = %.2f", it.Quantity, it.Title, it.Price, it.TotalPrice())
	if it.Size != nil {
		fmt.Fprintf(sh.out, "  size=%s", *it.Size)
	}
	if it.Color != nil {
		fmt.Fprintf(sh.out, "  color=%s(#%s)", it.Color.Name, it.Color.ARGBHex())
	}
	if it.IsBundleItem {
		fmt.Fprintf(sh.out, "  bundle: %s", it.FormatBundleProductsList())
	}
	fmt.Fprintln(sh.out)
}

func (sh *shell) placeOrder(cmd *cobra.Command, args []string) error {
	var records []model.Record
	if err := json.Unmarshal([]byte(strings.Join(args, " ")), &records); err != nil {
		return sh.check(fmt.Errorf("parse items: %w", err))
	}

	items := make([]model.OrderItem, 0, len(records))
	for _, rec := range records {
		items = append(items, model.OrderItemFromRecord(rec))
	}

	order, err := sh.store.PlaceOrder(cmd.Context(), items)
	if err != nil {
		return sh.check(err)
	}

	fmt.Fprintf(sh.out, "order %s %s total=%.2f\n", order.ID, order.Status, order.Total())
	return nil
}

func (sh *shell) data(cmd *cobra.Command, _ []string) error {
	data, err := sh.store.UserData(cmd.Context())
	if err != nil {
		return sh.check(err)
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return sh.check(err)
	}
	fmt.Fprintln(sh.out, string(raw))
	return nil
}

func (sh *shell) setData(cmd *cobra.Command, args []string) error {
	var data model.Record
	if err := json.Unmarshal([]byte(strings.Join(args, " ")), &data); err != nil || data == nil {
		return sh.check(fmt.Errorf("parse data: expected a JSON object"))
	}
	return sh.check(sh.store.PutUserData(cmd.Context(), data))
}
