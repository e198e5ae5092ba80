package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/piaflabs/piaf/db"
	"github.com/piaflabs/piaf/domain"
	"github.com/piaflabs/piaf/ui/signup"
	"github.com/piaflabs/piaf/util"
	"github.com/piaflabs/piaf/web"
)

func main() {

	conf, err := util.ReadConf()
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Println("Configuration: ")
	fmt.Println(util.PrettyPrint(conf))

	dataDir, err := util.EnsureDataDir(conf.Conf.DataDir)
	if err != nil {
		log.Fatalln(err)
	}
	conf.Conf.DataDir = dataDir

	accounts, posts, cleanup, err := buildStores(conf)
	if err != nil {
		log.Fatalln(err)
	}
	defer cleanup()

	coord := db.NewCoordinator(accounts, posts)

	// Heal whatever a crash between the two collection writes left behind
	stats, err := coord.Repair()
	if err != nil {
		log.Fatalln(err)
	}
	if stats.OrphanedPosts > 0 || stats.DanglingPostRefs > 0 || stats.DanglingFollowers > 0 {
		log.Printf("Repair pass: removed %d orphaned posts, %d stale post refs, %d dangling follow edges",
			stats.OrphanedPosts, stats.DanglingPostRefs, stats.DanglingFollowers)
	}

	if len(os.Args) > 1 && os.Args[1] == "signup" {
		runSignup(accounts)
		return
	}

	startServing(conf, accounts, posts, coord)
}

func buildStores(conf *util.AppConfig) (*db.AccountStore, *db.PostStore, func(), error) {
	policy := domain.NewModerationPolicy(conf.Limits.ReportThreshold)

	switch conf.Conf.Backend {
	case "sqlite":
		backend, err := db.NewSqliteBackend(filepath.Join(conf.Conf.DataDir, "piaf.db"))
		if err != nil {
			return nil, nil, nil, err
		}
		accounts := db.NewAccountStore(backend.AccountStorage(), conf.Password.MinLen)
		posts := db.NewPostStore(backend.PostStorage(), conf.Limits.PostMaxLen, conf.Limits.ReplyMaxLen, policy)
		return accounts, posts, func() { backend.Close() }, nil
	default:
		accounts := db.NewAccountStore(db.NewJSONAccountStorage(conf.Conf.DataDir), conf.Password.MinLen)
		posts := db.NewPostStore(db.NewJSONPostStorage(conf.Conf.DataDir), conf.Limits.PostMaxLen, conf.Limits.ReplyMaxLen, policy)
		return accounts, posts, func() {}, nil
	}
}

func runSignup(accounts *db.AccountStore) {
	acc, err := signup.Run(accounts)
	if err != nil {
		log.Fatalln(err)
	}
	if acc == nil {
		fmt.Println("Signup aborted.")
		return
	}
	fmt.Printf("Welcome aboard, %s!\n", acc.Username)
}

func startServing(conf *util.AppConfig, accounts *db.AccountStore, posts *db.PostStore, coord *db.Coordinator) {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("Starting HTTP server on %s:%d", conf.Conf.Host, conf.Conf.HttpPort)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", conf.Conf.HttpPort),
		Handler: web.NewRouter(conf, accounts, posts, coord),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalln(err)
		}
	}()

	<-done
	log.Println("Stopping HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer func() { cancel() }()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalln(err)
	}
}
