// Command portalctl inspects the portal's route table and article catalog
// without starting the web server.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kabaranime.id/portal/internal/catalog"
	"kabaranime.id/portal/internal/i18n"
	"kabaranime.id/portal/internal/markup"
	"kabaranime.id/portal/internal/router"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "portalctl",
		Short:        "Inspect Kabar Anime routes and content",
		SilenceUsage: true,
	}
	root.AddCommand(newRoutesCmd(), newResolveCmd(), newArticlesCmd())
	return root
}

func newRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the route table in match order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PATTERN\tPAGE")
			for _, r := range router.Default.Routes() {
				fmt.Fprintf(tw, "%s\t%s\n", r.Pattern, r.Page)
			}
			return tw.Flush()
		},
	}
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <path>",
		Short: "Show which page a path resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := router.Default.Resolve(args[0])
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "page:    %s\n", m.Page)
			fmt.Fprintf(out, "pattern: %s\n", m.Pattern)
			fmt.Fprintf(out, "url:     %s\n", m.URL())
			names := make([]string, 0, len(m.Params))
			for k := range m.Params {
				names = append(names, k)
			}
			sort.Strings(names)
			for _, k := range names {
				fmt.Fprintf(out, "param:   %s=%s\n", k, m.Params[k])
			}
			return nil
		},
	}
}

type articlesOptions struct {
	content  string
	category string
	query    string
	sort     string
	view     string
	page     int
	lang     string
}

func newArticlesCmd() *cobra.Command {
	opts := articlesOptions{}
	cmd := &cobra.Command{
		Use:   "articles",
		Short: "Print one listing page the way the category page computes it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runArticles(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.content, "content", "content", "content directory holding articles.yaml")
	f.StringVar(&opts.category, "category", "", "category to list; empty lists every article")
	f.StringVar(&opts.query, "q", "", "search query")
	f.StringVar(&opts.sort, "sort", string(catalog.SortNewest), "newest, oldest, popular or trending")
	f.StringVar(&opts.view, "view", string(catalog.ViewGrid), "grid or list")
	f.IntVar(&opts.page, "page", 1, "page number; clamped to the available pages")
	f.StringVar(&opts.lang, "lang", string(i18n.Default), "id or en")
	return cmd
}

func runArticles(cmd *cobra.Command, opts articlesOptions) error {
	lang, ok := i18n.ParseLanguage(opts.lang)
	if !ok {
		return fmt.Errorf("%w: %q", i18n.ErrUnsupportedLanguage, opts.lang)
	}
	cat, err := catalog.LoadFile(filepath.Join(opts.content, "articles.yaml"), markup.New())
	if err != nil {
		return err
	}
	articles := cat.All()
	if opts.category != "" {
		c, ok := catalog.ParseCategory(opts.category)
		if !ok {
			return fmt.Errorf("unknown category %q", opts.category)
		}
		articles = cat.ByCategory(c)
	}
	listing := catalog.List(articles, lang, catalog.ListingState{
		Query: strings.TrimSpace(opts.query),
		Sort:  catalog.SortOrder(opts.sort),
		View:  catalog.ViewMode(opts.view),
		Page:  opts.page,
	})

	out := cmd.OutOrStdout()
	st := listing.State
	fmt.Fprintf(out, "page %d/%d, %d articles, sort=%s view=%s\n", st.Page, listing.TotalPages, listing.Total, st.Sort, st.View)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tPUBLISHED\tLIKES\tCOMMENTS\tTITLE")
	for _, a := range listing.Items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", a.Path(), a.PublishedAt.Format("2006-01-02"), a.Likes, a.CommentCount, a.Title.Get(lang))
	}
	return tw.Flush()
}
