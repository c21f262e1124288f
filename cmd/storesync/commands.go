package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/itsneelabh/storesync"
	"github.com/itsneelabh/storesync/api"
	"github.com/itsneelabh/storesync/cart"
	"github.com/itsneelabh/storesync/catalog"
	"github.com/itsneelabh/storesync/orders"
)

func (c *cli) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "storesync %s (commit %s, built %s)\n",
				storesync.Version, storesync.GitCommit, storesync.BuildDate)
			return nil
		},
	}
}

func (c *cli) loginCommand() *cobra.Command {
	var creds api.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := c.client.Login(cmd.Context(), creds)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Logged in as %s\n", sess.UserID)
			fmt.Fprintf(out, "export STORESYNC_TOKEN=%s\n", sess.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&creds.Phone, "phone", "", "account phone number")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password")
	cmd.Flags().StringVar(&creds.Role, "role", "consumer", "account role")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := c.session()
			if err != nil {
				return err
			}
			if err := c.client.Logout(cmd.Context(), sess); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (c *cli) catalogCommand() *cobra.Command {
	var query, category string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, _ := c.session()
			products, err := c.client.FetchCatalog(cmd.Context(), sess)
			if err != nil {
				return err
			}
			if category != "" {
				products = catalog.FilterByCategory(products, category)
			}
			products = c.client.Search(products, query)
			printProducts(cmd.OutOrStdout(), products)
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "search", "", "only products matching every word")
	cmd.Flags().StringVar(&category, "category", "", "only products in this category (name or id)")
	return cmd
}

func (c *cli) productCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "product <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _ := c.session()
			p, err := c.client.Product(cmd.Context(), sess, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", p.Name, p.ID)
			fmt.Fprintf(out, "Price:    %s\n", p.Price.StringFixed(2))
			fmt.Fprintf(out, "Category: %s\n", p.Category)
			fmt.Fprintf(out, "Rating:   %.1f\n", p.Rating)
			if p.Description != "" {
				fmt.Fprintf(out, "\n%s\n", p.Description)
			}
			return nil
		},
	}
}

func (c *cli) cartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cart",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := c.session()
			if err != nil {
				return err
			}
			ct, err := c.client.FetchCart(cmd.Context(), sess)
			if err != nil {
				return err
			}
			printCart(cmd.OutOrStdout(), ct)
			return nil
		},
	}
}

func (c *cli) addCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <productId> [quantity]",
		Short: "Add a product to the cart",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.session()
			if err != nil {
				return err
			}
			qty := 1
			if len(args) == 2 {
				if qty, err = strconv.Atoi(args[1]); err != nil {
					return fmt.Errorf("invalid quantity %q", args[1])
				}
			}
			res, err := c.client.AddToCart(cmd.Context(), sess, args[0], qty)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}
}

func (c *cli) setQuantityCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-qty <productId> <quantity>",
		Short: "Set a cart line's quantity (0 removes it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.session()
			if err != nil {
				return err
			}
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			// Prime the synchronizer so a failed write can roll back to the
			// server's line.
			if _, err := c.client.FetchCart(cmd.Context(), sess); err != nil {
				return err
			}
			res, err := c.client.MutateCartQuantity(cmd.Context(), sess, args[0], qty)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}
}

func (c *cli) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <productId>",
		Short: "Remove a product from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.session()
			if err != nil {
				return err
			}
			if _, err := c.client.FetchCart(cmd.Context(), sess); err != nil {
				return err
			}
			res, err := c.client.RemoveCartItem(cmd.Context(), sess, args[0])
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}
}

func (c *cli) ordersCommand() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := c.session()
			if err != nil {
				return err
			}
			list, err := c.client.Orders(cmd.Context(), sess)
			if err != nil {
				return err
			}
			if status != "" {
				list = orders.FilterByStatus(list, orders.ParseStatus(status))
			}
			printOrders(cmd.OutOrStdout(), list)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only orders with this status")
	return cmd
}

func (c *cli) placeCommand() *cobra.Command {
	var (
		addr    orders.ShippingAddress
		payment string
		notes   string
	)
	cmd := &cobra.Command{
		Use:   "place",
		Short: "Place an order for everything in the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := c.session()
			if err != nil {
				return err
			}
			ct, err := c.client.FetchCart(cmd.Context(), sess)
			if err != nil {
				return err
			}
			req, err := orders.NewRequestFromCart(ct, addr, payment, notes)
			if err != nil {
				return err
			}
			placed, err := c.client.PlaceOrder(cmd.Context(), sess, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Order %s placed, total %s\n", placed.OrderID, ct.Total().StringFixed(2))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr.FullName, "name", "", "recipient full name")
	f.StringVar(&addr.PhoneNumber, "phone", "", "recipient phone number")
	f.StringVar(&addr.Address, "address", "", "street address")
	f.StringVar(&addr.City, "city", "", "city")
	f.StringVar(&addr.PostalCode, "postal-code", "", "postal code")
	f.StringVar(&payment, "payment", orders.PaymentCashOnDelivery, "payment method: cash_on_delivery or bkash")
	f.StringVar(&notes, "notes", "", "order notes")
	return cmd
}

func (c *cli) cancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <orderId>",
		Short: "Cancel a pending order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.session()
			if err != nil {
				return err
			}
			if err := c.client.CancelOrder(cmd.Context(), sess, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Order %s cancelled\n", args[0])
			return nil
		},
	}
}

func (c *cli) wishlistCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wishlist",
		Short: "List saved products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := c.session()
			if err != nil {
				return err
			}
			entries, err := c.client.Wishlist(cmd.Context(), sess)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ENTRY\tPRODUCT\tNAME")
			for _, e := range entries {
				name := ""
				if e.Product != nil {
					name = e.Product.Name
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID, e.ProductID, name)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <productId>",
		Short: "Save a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.session()
			if err != nil {
				return err
			}
			res, err := c.client.AddToWishlist(cmd.Context(), sess, args[0])
			if err != nil {
				return err
			}
			if res.AlreadyPresent {
				fmt.Fprintf(cmd.OutOrStdout(), "Already saved (%s)\n", res.EntryID)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved (%s)\n", res.EntryID)
			return nil
		},
	}, &cobra.Command{
		Use:   "remove <entryId>",
		Short: "Remove a saved product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.session()
			if err != nil {
				return err
			}
			if err := c.client.RemoveFromWishlist(cmd.Context(), sess, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Removed")
			return nil
		},
	})
	return cmd
}

func printProducts(out io.Writer, products []catalog.Product) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE")
	for _, p := range products {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Category, p.Price.StringFixed(2))
	}
	_ = w.Flush()
}

func printCart(out io.Writer, ct cart.Cart) {
	if ct.Empty() {
		fmt.Fprintln(out, "Cart is empty")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tNAME\tQTY\tPRICE\tTOTAL")
	for _, l := range ct.Lines {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", l.ProductID, l.Name, l.Quantity, l.UnitPrice.StringFixed(2), l.Total().StringFixed(2))
	}
	_ = w.Flush()
	fmt.Fprintf(out, "Subtotal: %s\n", ct.Subtotal().StringFixed(2))
	fmt.Fprintf(out, "Delivery: %s\n", ct.Fee().StringFixed(2))
	fmt.Fprintf(out, "Total:    %s\n", ct.Total().StringFixed(2))
}

func printResult(out io.Writer, res cart.Result) error {
	fmt.Fprintf(out, "%s: %s x%d\n", res.Outcome, res.ProductID, res.Quantity)
	printCart(out, res.Cart)
	return nil
}

func printOrders(out io.Writer, list []orders.Order) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tSTATUS\tITEMS\tTOTAL")
	for _, o := range list {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", o.ID, o.Status, o.ItemCount, o.Total.StringFixed(2))
	}
	_ = w.Flush()
}
