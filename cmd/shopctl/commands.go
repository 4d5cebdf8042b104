package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/juju/ansiterm"

	"storefront-client/internal/application/storefront"
	"storefront-client/internal/domain/shop"
)

var errUsage = errors.New("invalid usage")

type command func(ctx context.Context, args []string) error

func (a *app) commands() map[string]command {
	return map[string]command{
		"login":            a.cmdLogin,
		"register":         a.cmdRegister,
		"logout":           a.cmdLogout,
		"me":               a.cmdMe,
		"profile":          a.cmdProfile,
		"avatar":           a.cmdAvatar,
		"categories":       a.cmdCategories,
		"products":         a.cmdProducts,
		"product":          a.cmdProduct,
		"cart":             a.cmdCart,
		"add-to-cart":      a.cmdAddToCart,
		"update-cart":      a.cmdUpdateCart,
		"remove-from-cart": a.cmdRemoveFromCart,
		"buy":              a.cmdBuy,
		"purchases":        a.cmdPurchases,
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := a.commands()[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	return cmd(ctx, args[1:])
}

// newTable 建立對齊欄位的輸出；非終端機時不輸出色碼。
func newTable(w io.Writer) *ansiterm.TabWriter {
	return ansiterm.NewTabWriter(w, 0, 4, 2, ' ', 0)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	in, err := authFlags("login", args)
	if err != nil {
		return err
	}
	data, err := a.shop.Auth.Login(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", data.User.Email)
	return nil
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	in, err := authFlags("register", args)
	if err != nil {
		return err
	}
	data, err := a.shop.Auth.Register(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered %s\n", data.User.Email)
	return nil
}

func authFlags(name string, args []string) (storefront.AuthInput, error) {
	fs := newFlagSet(name)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := parseFlags(fs, args); err != nil {
		return storefront.AuthInput{}, err
	}
	return storefront.AuthInput{Email: *email, Password: *password}, nil
}

func (a *app) cmdLogout(ctx context.Context, _ []string) error {
	if err := a.shop.Auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *app) cmdMe(ctx context.Context, _ []string) error {
	user, err := a.shop.Users.Me(ctx)
	if err != nil {
		return err
	}
	a.printUser(user)
	return nil
}

func (a *app) cmdProfile(ctx context.Context, args []string) error {
	fs := newFlagSet("profile")
	var in shop.ProfileUpdate
	fs.StringVar(&in.Name, "name", "", "display name")
	fs.StringVar(&in.Phone, "phone", "", "phone number")
	fs.StringVar(&in.Address, "address", "", "shipping address")
	fs.StringVar(&in.Password, "password", "", "current password")
	fs.StringVar(&in.NewPassword, "new-password", "", "new password")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	user, err := a.shop.Users.UpdateProfile(ctx, in)
	if err != nil {
		return err
	}
	a.printUser(user)
	return nil
}

func (a *app) cmdAvatar(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: avatar <file>", errUsage)
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	name, err := a.shop.Users.UploadAvatar(ctx, filepath.Base(args[0]), f)
	if err != nil {
		return err
	}
	if _, err := a.shop.Users.UpdateProfile(ctx, shop.ProfileUpdate{Avatar: name}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Avatar: %s\n", shop.AvatarURL(a.cfg.API.BaseURL, name))
	return nil
}

func (a *app) printUser(u shop.User) {
	w := newTable(a.out)
	fmt.Fprintf(w, "ID\t%s\n", u.ID)
	fmt.Fprintf(w, "Email\t%s\n", u.Email)
	fmt.Fprintf(w, "Name\t%s\n", u.Name)
	fmt.Fprintf(w, "Phone\t%s\n", u.Phone)
	fmt.Fprintf(w, "Address\t%s\n", u.Address)
	if u.Avatar != "" {
		fmt.Fprintf(w, "Avatar\t%s\n", shop.AvatarURL(a.cfg.API.BaseURL, u.Avatar))
	}
	w.Flush()
}

func (a *app) cmdCategories(ctx context.Context, _ []string) error {
	cats, err := a.shop.Categories.List(ctx)
	if err != nil {
		return err
	}
	w := newTable(a.out)
	fmt.Fprintln(w, "ID\tNAME")
	for _, c := range cats {
		fmt.Fprintf(w, "%s\t%s\n", c.ID, c.Name)
	}
	return w.Flush()
}

func (a *app) cmdProducts(ctx context.Context, args []string) error {
	fs := newFlagSet("products")
	var cfg shop.ListConfig
	var sortBy, order string
	fs.IntVar(&cfg.Page, "page", 0, "page number")
	fs.IntVar(&cfg.Limit, "limit", 0, "items per page")
	fs.StringVar(&sortBy, "sort", "", "createdAt|view|sold|price")
	fs.StringVar(&order, "order", "", "asc|desc")
	fs.StringVar(&cfg.Name, "name", "", "name contains")
	fs.StringVar(&cfg.Category, "category", "", "category id")
	fs.Int64Var(&cfg.PriceMin, "price-min", 0, "minimum price")
	fs.Int64Var(&cfg.PriceMax, "price-max", 0, "maximum price")
	fs.IntVar(&cfg.RatingFilter, "rating", 0, "minimum rating")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg.SortBy = shop.SortBy(sortBy)
	cfg.Order = shop.Order(order)

	list, err := a.shop.Products.List(ctx, cfg)
	if err != nil {
		return err
	}
	w := newTable(a.out)
	fmt.Fprintln(w, "NAME-ID\tPRICE\tDISCOUNT\tSOLD\tSTOCK")
	for _, p := range list.Products {
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\n",
			shop.GenerateNameID(p.Name, p.ID), p.Price,
			shop.DiscountRate(p.PriceBeforeDiscount, p.Price), p.Sold, p.Quantity)
	}
	fmt.Fprintf(w, "page %d/%d\n", list.Pagination.Page, list.Pagination.PageSize)
	return w.Flush()
}

func (a *app) cmdProduct(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: product <name-id|id>", errUsage)
	}
	p, err := a.shop.Products.Get(ctx, args[0])
	if err != nil {
		return err
	}
	w := newTable(a.out)
	fmt.Fprintf(w, "ID\t%s\n", p.ID)
	fmt.Fprintf(w, "Name\t%s\n", p.Name)
	fmt.Fprintf(w, "Category\t%s\n", p.Category.Name)
	fmt.Fprintf(w, "Price\t%d (was %d, -%s)\n", p.Price, p.PriceBeforeDiscount, shop.DiscountRate(p.PriceBeforeDiscount, p.Price))
	fmt.Fprintf(w, "Rating\t%.1f\n", p.Rating)
	fmt.Fprintf(w, "Stock\t%d\n", p.Quantity)
	fmt.Fprintf(w, "Sold\t%d\n", p.Sold)
	fmt.Fprintf(w, "Views\t%d\n", p.View)
	return w.Flush()
}

func (a *app) cmdCart(ctx context.Context, _ []string) error {
	items, err := a.shop.Purchases.Cart(ctx)
	if err != nil {
		return err
	}
	return a.printPurchases(items)
}

func (a *app) cmdAddToCart(ctx context.Context, args []string) error {
	item, err := cartItemFlags("add-to-cart", args, 1)
	if err != nil {
		return err
	}
	p, err := a.shop.Purchases.AddToCart(ctx, item)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Cart: %s x%d\n", p.Product.Name, p.BuyCount)
	return nil
}

func (a *app) cmdUpdateCart(ctx context.Context, args []string) error {
	item, err := cartItemFlags("update-cart", args, 0)
	if err != nil {
		return err
	}
	p, err := a.shop.Purchases.Update(ctx, item)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Cart: %s x%d\n", p.Product.Name, p.BuyCount)
	return nil
}

func cartItemFlags(name string, args []string, defCount int) (shop.CartItem, error) {
	fs := newFlagSet(name)
	var item shop.CartItem
	fs.StringVar(&item.ProductID, "product", "", "product id or name-id")
	fs.IntVar(&item.BuyCount, "count", defCount, "quantity")
	if err := parseFlags(fs, args); err != nil {
		return item, err
	}
	item.ProductID = shop.IDFromNameID(item.ProductID)
	return item, nil
}

func (a *app) cmdRemoveFromCart(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: remove-from-cart <purchase-id>...", errUsage)
	}
	n, err := a.shop.Purchases.Delete(ctx, args)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed %d item(s)\n", n)
	return nil
}

func (a *app) cmdBuy(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: buy <product-id[:count]>...", errUsage)
	}
	items := make([]shop.CartItem, 0, len(args))
	for _, arg := range args {
		item, err := parseBuyArg(arg)
		if err != nil {
			return err
		}
		items = append(items, item)
	}
	bought, err := a.shop.Purchases.Buy(ctx, items)
	if err != nil {
		return err
	}
	return a.printPurchases(bought)
}

// parseBuyArg 解析 "id" 或 "id:count"，id 可為 name-id。
func parseBuyArg(arg string) (shop.CartItem, error) {
	id, countStr, hasCount := strings.Cut(arg, ":")
	item := shop.CartItem{ProductID: shop.IDFromNameID(id), BuyCount: 1}
	if hasCount {
		n, err := strconv.Atoi(countStr)
		if err != nil || n <= 0 {
			return item, fmt.Errorf("%w: invalid count in %q", errUsage, arg)
		}
		item.BuyCount = n
	}
	if item.ProductID == "" {
		return item, fmt.Errorf("%w: missing product id in %q", errUsage, arg)
	}
	return item, nil
}

func (a *app) cmdPurchases(ctx context.Context, args []string) error {
	fs := newFlagSet("purchases")
	status := fs.Int("status", int(shop.PurchaseAll), "purchase status (-1..5)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	items, err := a.shop.Purchases.List(ctx, shop.PurchaseStatus(*status))
	if err != nil {
		return err
	}
	return a.printPurchases(items)
}

func (a *app) printPurchases(items []shop.Purchase) error {
	w := newTable(a.out)
	fmt.Fprintln(w, "ID\tPRODUCT\tCOUNT\tPRICE\tSTATUS")
	var total int64
	for _, p := range items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", p.ID, p.Product.Name, p.BuyCount, p.Price, p.Status)
		total += p.Price * int64(p.BuyCount)
	}
	fmt.Fprintf(w, "total\t\t\t%d\t\n", total)
	return w.Flush()
}
