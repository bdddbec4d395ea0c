package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/beanwork/pkg/config"
	"github.com/vanderheijden86/beanwork/pkg/model"
	"github.com/vanderheijden86/beanwork/pkg/store"
	"github.com/vanderheijden86/beanwork/pkg/store/beansfile"
	"github.com/vanderheijden86/beanwork/pkg/store/sqlitestore"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <source>",
		Short: "Copy beans from a .beans directory or database into the configured store",
		Long: `import reads every bean from source and writes it to the configured store.
A directory is read as bean files and a file as a SQLite database. Relative
paths start at the project root.

A SQLite store replaces beans it already has. A files store keeps them and
skips the copy.`,
		GroupID:     "edit",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			dstPath := storePath(a.cfg, a.projectDir)
			srcPath := args[0]
			if !filepath.IsAbs(srcPath) {
				srcPath = filepath.Join(a.projectDir, srcPath)
			}
			if filepath.Clean(srcPath) == filepath.Clean(dstPath) {
				return fmt.Errorf("%s is already the configured store", srcPath)
			}

			src, closeSrc, err := openSource(srcPath)
			if err != nil {
				return err
			}
			defer closeSrc()

			if a.cfg.Store.Backend == config.BackendFiles {
				if err := os.MkdirAll(dstPath, 0o755); err != nil {
					return fmt.Errorf("creating beans directory: %w", err)
				}
			}
			dst, closeDst, err := openStore(a.cfg, a.projectDir)
			if err != nil {
				return err
			}
			a.store, a.close = dst, closeDst

			ctx := cmd.Context()
			beans, err := src.List(ctx, model.ListFilter{})
			if err != nil {
				return fmt.Errorf("reading %s: %w", srcPath, err)
			}
			added, skipped, err := importBeans(ctx, dst, beans)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d beans into %s", added, dstPath)
			if skipped > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), ", skipped %d existing", skipped)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}

// openSource opens the beans to import: a directory as bean files, any other
// file as a SQLite database.
func openSource(path string) (store.BeanStore, func() error, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("import source: %w", err)
	}
	if info.IsDir() {
		return beansfile.New(path), func() error { return nil }, nil
	}
	st, err := sqlitestore.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return st, st.Close, nil
}

// importBeans writes beans to dst. The cli backend has no way to create beans.
func importBeans(ctx context.Context, dst store.BeanStore, beans []model.Bean) (added, skipped int, err error) {
	switch dst := dst.(type) {
	case *sqlitestore.Store:
		if err := dst.Import(ctx, beans); err != nil {
			return 0, 0, err
		}
		return len(beans), 0, nil
	case *beansfile.Store:
		for _, b := range beans {
			_, err := dst.Show(ctx, b.ID)
			if err == nil {
				skipped++
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return added, skipped, err
			}
			if _, err := dst.Create(ctx, b); err != nil {
				return added, skipped, err
			}
			added++
		}
		return added, skipped, nil
	default:
		return 0, 0, errors.New("the configured store cannot import beans; use --store files or --store sqlite")
	}
}
