// vaultctl is a minimal administrative CLI for KEY_VAULT: setup, start,
// stop, and reset the password-derived key hierarchy against a live
// metadata API and database, the way apcore's cmdline.go/crypt.go drive
// administrative actions against a running application.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/logger"
	"github.com/manifoldco/promptui"
	"gopkg.in/ini.v1"

	"github.com/cloudvault/enginecore/cachemanager"
	"github.com/cloudvault/enginecore/framework/config"
	"github.com/cloudvault/enginecore/framework/conn"
	"github.com/cloudvault/enginecore/framework/db"
	"github.com/cloudvault/enginecore/keyvault"
	"github.com/cloudvault/enginecore/models"
	"github.com/cloudvault/enginecore/util"
)

var (
	configFlag = flag.String("config", "config.ini", "Path to the configuration file")
)

var (
	infoLogger  = logger.Init("vaultctl", false, false, os.Stdout)
	errorLogger = logger.Init("vaultctl", false, false, os.Stderr)
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage:\n\n    vaultctl <setup|start|stop|reset> [-config path]\n\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		errorLogger.Fatalf("loading config: %v", err)
	}

	sqlDB, dialect, err := db.NewDB(cfg)
	if err != nil {
		errorLogger.Fatalf("opening database: %v", err)
	}
	defer sqlDB.Close()

	settings, folderKeys, fileKeys, fsTasks, err := prepareModels(sqlDB, dialect)
	if err != nil {
		errorLogger.Fatalf("preparing models: %v", err)
	}

	ctl := conn.NewController(cfg)
	ctl.Start()
	defer ctl.Stop()
	api := conn.NewAPIClient(ctl)

	cache := cachemanager.NewManager(time.Duration(cfg.CryptoConfig.DerivedKeyTTLSecs) * time.Second)
	cache.Start()
	defer cache.Stop()

	vault := keyvault.New(sqlDB, settings, folderKeys, fileKeys, fsTasks, api, cache, cfg.CryptoConfig)

	ctx := util.Background()
	switch flag.Arg(0) {
	case "setup":
		runSetup(ctx, vault)
	case "start":
		runStart(ctx, vault)
	case "stop":
		vault.Stop()
		infoLogger.Info("key vault stopped")
	case "reset":
		runReset(ctx, vault)
	default:
		usage()
		os.Exit(2)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg := &config.Config{
		CryptoConfig:    config.DefaultCryptoConfig(),
		PageCacheConfig: config.DefaultPageCacheConfig(),
		ApiClientConfig: config.DefaultApiClientConfig(),
	}
	f, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	if err := f.MapTo(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func prepareModels(sqlDB *sql.DB, dialect models.SqlDialect) (*models.Settings, *models.CryptoFolderKeys, *models.CryptoFileKeys, *models.FsTasks, error) {
	settings := &models.Settings{}
	folderKeys := &models.CryptoFolderKeys{}
	fileKeys := &models.CryptoFileKeys{}
	fsTasks := &models.FsTasks{}

	all := []models.Model{settings, folderKeys, fileKeys, fsTasks}
	err := models.DoInTx(util.Background(), sqlDB, func(tx *sql.Tx) error {
		for _, m := range all {
			if err := m.CreateTable(tx, dialect); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}
	for _, m := range all {
		if err := m.Prepare(sqlDB, dialect); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	return settings, folderKeys, fileKeys, fsTasks, nil
}

func runSetup(ctx util.Context, vault *keyvault.Vault) {
	password := mustPromptPassword("New vault password")
	confirm := mustPromptPassword("Confirm password")
	if password != confirm {
		errorLogger.Fatal("passwords did not match")
	}
	hint, err := (&promptui.Prompt{Label: "Password hint (optional)"}).Run()
	if err != nil {
		errorLogger.Fatalf("reading hint: %v", err)
	}
	if err := vault.Setup(ctx, password, []byte(hint)); err != nil {
		errorLogger.Fatalf("setup failed: %v", err)
	}
	infoLogger.Info("key vault set up")
}

func runStart(ctx util.Context, vault *keyvault.Vault) {
	password := mustPromptPassword("Vault password")
	if err := vault.Start(ctx, password); err != nil {
		errorLogger.Fatalf("start failed: %v", err)
	}
	infoLogger.Info("key vault started")
}

func runReset(ctx util.Context, vault *keyvault.Vault) {
	p := promptui.Prompt{Label: "Type RESET to permanently discard all keys"}
	s, err := p.Run()
	if err != nil {
		errorLogger.Fatalf("reading confirmation: %v", err)
	}
	if s != "RESET" {
		errorLogger.Fatal("reset aborted")
	}
	if err := vault.Reset(ctx); err != nil {
		errorLogger.Fatalf("reset failed: %v", err)
	}
	infoLogger.Info("key vault reset")
}

func mustPromptPassword(label string) string {
	p := promptui.Prompt{Label: label, Mask: '*'}
	s, err := p.Run()
	if err != nil {
		errorLogger.Fatalf("reading password: %v", err)
	}
	return s
}
