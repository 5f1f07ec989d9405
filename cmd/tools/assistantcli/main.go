// Command assistantcli exercises the detailing assistant from a terminal:
// one-shot resolution, an interactive chat with console speech output, and a
// catalog listing.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/concierge/backend/internal/analysis/language"
	"github.com/zhouzirui/concierge/backend/internal/analysis/recommend"
	"github.com/zhouzirui/concierge/backend/internal/model/catalog"
	"github.com/zhouzirui/concierge/backend/internal/service/resolver"
)

type rootOptions struct {
	catalogPath string
	lang        string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "assistantcli",
		Short: "Talk to the detailing assistant from the terminal",
		Long: `Talk to the detailing assistant without a browser.

  assistantcli ask "how much is a ceramic coating"   # resolve one utterance
  assistantcli chat --lang es                         # interactive session
  assistantcli catalog                                # list services`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// a missing .env is fine
			_ = godotenv.Load()
		},
	}

	root.PersistentFlags().StringVar(&opts.catalogPath, "catalog", os.Getenv("CATALOG_PATH"), "catalog YAML overriding the built-in services")
	root.PersistentFlags().StringVar(&opts.lang, "lang", os.Getenv("ASSISTANT_DEFAULT_LANGUAGE"), "configured language (en, es, fr, ar)")

	root.AddCommand(newAskCmd(opts), newChatCmd(opts), newCatalogCmd(opts))
	return root
}

func (o *rootOptions) language() language.Tag {
	return language.Parse(o.lang)
}

func (o *rootOptions) store() (*catalog.MemoryStore, error) {
	if o.catalogPath == "" {
		return catalog.NewMemoryStore(catalog.Seed()), nil
	}
	c, err := catalog.Load(o.catalogPath)
	if err != nil {
		return nil, err
	}
	return catalog.NewMemoryStore(c), nil
}

func (o *rootOptions) resolver(ctx context.Context) (*resolver.Resolver, catalog.Store, error) {
	store, err := o.store()
	if err != nil {
		return nil, nil, err
	}
	res, err := resolver.New(ctx, recommend.New(store), store, resolver.Config{})
	if err != nil {
		return nil, nil, err
	}
	return res, store, nil
}
