// Command schemacrawler-migrate copies the embedded bbolt dev Store
// into a relational production Store (MySQL/Postgres), for operators
// moving a single-node deployment onto the shared backend.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/nlweb-ai/schemacrawler/pkg/store"
	"github.com/nlweb-ai/schemacrawler/pkg/types"
)

var (
	dataDir   = flag.String("data-dir", "./data", "directory holding the bbolt schemacrawler.db file")
	dryRun    = flag.Bool("dry-run", false, "report what would be migrated without writing to the SQL store")
	dbDialect = flag.String("db-dialect", "mysql", "destination SQL dialect: mysql, postgres")
	dbServer  = flag.String("db-server", "", "destination DB server address")
	dbName    = flag.String("db-database", "", "destination DB name")
	dbUser    = flag.String("db-user", "", "destination DB user")
	dbPass    = flag.String("db-password", "", "destination DB password")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags)
	log.Println("schemacrawler bbolt -> SQL store migration")
	log.Println("===========================================")

	dbPath := filepath.Join(*dataDir, "schemacrawler.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		log.Fatalf("bbolt database not found at %s", dbPath)
	}

	ctx := context.Background()

	src, err := store.NewBoltStore(*dataDir)
	if err != nil {
		log.Fatalf("failed to open source bbolt store: %v", err)
	}
	defer src.Close()

	var dst store.Store
	if !*dryRun {
		dialect := store.DialectMySQL
		if *dbDialect == string(store.DialectPostgres) {
			dialect = store.DialectPostgres
		}
		dst, err = store.OpenSQLStore(ctx, store.DSN{
			Dialect:  dialect,
			Server:   *dbServer,
			Database: *dbName,
			Username: *dbUser,
			Password: *dbPass,
		})
		if err != nil {
			log.Fatalf("failed to open destination SQL store: %v", err)
		}
		defer dst.Close()
	}

	if err := migrate(ctx, src, dst, *dryRun); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	if *dryRun {
		log.Println("\nDry run completed. No changes made.")
		log.Println("Run without --dry-run to perform the migration.")
	} else {
		log.Println("\n✓ Migration completed successfully.")
		log.Println("The bbolt database was left untouched; verify the SQL store before decommissioning it.")
	}
}

// migrate copies every active site (and its files, ids, and
// processing-error history) and the users that own them from src into
// dst. It is additive only: AddSite/DiffSiteFiles/DiffFileIds are
// idempotent, so running this tool twice against the same pair of
// stores is safe.
func migrate(ctx context.Context, src, dst store.Store, dryRun bool) error {
	sites, err := src.ListAllSites(ctx)
	if err != nil {
		return err
	}
	log.Printf("found %d active site(s) to migrate", len(sites))

	seenUsers := make(map[string]bool)
	var siteCount, fileCount, idCount, errCount int

	for _, site := range sites {
		if !seenUsers[site.UserID] {
			seenUsers[site.UserID] = true
			if err := migrateUser(ctx, src, dst, site.UserID, dryRun); err != nil {
				log.Printf("  warning: user %s: %v", site.UserID, err)
			}
		}

		log.Printf("  site %s (user %s)", site.SiteURL, site.UserID)
		if !dryRun {
			if err := dst.AddSite(ctx, site); err != nil {
				return err
			}
		}
		siteCount++

		files, err := src.ListSiteFiles(ctx, site.SiteURL, site.UserID)
		if err != nil {
			return err
		}
		for _, f := range files {
			fileCount++
			ids, err := src.ListFileIds(ctx, f.FileURL, site.UserID)
			if err != nil {
				return err
			}
			idCount += len(ids)

			if !dryRun {
				triple := []types.FileTriple{{
					SiteURL:   site.SiteURL,
					SchemaMap: f.SchemaMap,
					FileURL:   f.FileURL,
				}}
				if _, _, err := dst.DiffSiteFiles(ctx, site.SiteURL, site.UserID, f.SchemaMap, triple); err != nil {
					return err
				}
				if _, _, err := dst.DiffFileIds(ctx, f.FileURL, site.UserID, ids); err != nil {
					return err
				}
			}

			errs, err := src.ListErrors(ctx, f.FileURL, site.UserID, 100)
			if err != nil {
				return err
			}
			errCount += len(errs)
			if !dryRun {
				for _, pe := range errs {
					if err := dst.LogError(ctx, pe); err != nil {
						return err
					}
				}
			}
		}
	}

	log.Printf("migrated %d site(s), %d file(s), %d id(s), %d error record(s)", siteCount, fileCount, idCount, errCount)
	return nil
}

func migrateUser(ctx context.Context, src, dst store.Store, userID string, dryRun bool) error {
	u, err := src.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if dryRun {
		return nil
	}
	return dst.CreateUser(ctx, u)
}
