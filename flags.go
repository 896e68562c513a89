package main

import (
	"github.com/rs/zerolog/log"

	"github.com/gentoomaniac/snapshot-tool/pkg/catalog"
	"github.com/gentoomaniac/snapshot-tool/pkg/dump"
	"github.com/gentoomaniac/snapshot-tool/pkg/remote"
)

type DatabaseFlags struct {
	Host     string `help:"Database host" required:""`
	Port     int    `help:"Database port" default:"3306"`
	User     string `help:"Database user" required:""`
	Password string `help:"Database password" env:"SNAPSHOT_DB_PASSWORD"`
	SSLMode  string `name:"ssl-mode" help:"Transport security mode passed through to the dump tools"`
}

func (f *DatabaseFlags) connection() dump.Connection {
	return dump.Connection{
		Host:     f.Host,
		Port:     f.Port,
		User:     f.User,
		Password: f.Password,
		SSLMode:  f.SSLMode,
	}
}

type RemoteFlags struct {
	Remote       string `help:"Remote base URL snapshots are stored under" required:""`
	AuthMode     string `name:"auth-mode" help:"Storage auth mode: sas, spn or msi" default:"sas"`
	SASToken     string `name:"sas-token" help:"Pre-shared access token appended to remote URLs" env:"SNAPSHOT_SAS_TOKEN"`
	TenantID     string `name:"tenant-id" help:"Tenant for the service principal login"`
	ClientID     string `name:"client-id" help:"Application id for the service principal login"`
	ClientSecret string `name:"client-secret" help:"Secret for the service principal login" env:"AZCOPY_SPA_CLIENT_SECRET"`
}

func (f *RemoteFlags) transport() (*remote.AzCopy, error) {
	return remote.NewAzCopy(remote.AzCopyConfig{
		AuthMode:     f.AuthMode,
		SASToken:     f.SASToken,
		TenantID:     f.TenantID,
		ClientID:     f.ClientID,
		ClientSecret: f.ClientSecret,
	})
}

type WorkdirFlags struct {
	Root    string `help:"Working directory holding the lock and the snapshot slot" default:"/var/lib/snapshot-tool" type:"path"`
	Catalog string `help:"SQLite file recording run history, empty disables recording" type:"path"`
}

func (f *WorkdirFlags) openCatalog() catalog.Catalog {
	if f.Catalog == "" {
		return nil
	}
	c, err := catalog.NewSQLLite(f.Catalog)
	if err != nil {
		log.Warn().Err(err).Str("path", f.Catalog).Msg("could not open run catalog")
		return nil
	}
	if err := c.Init(); err != nil {
		log.Warn().Err(err).Str("path", f.Catalog).Msg("could not initialise run catalog")
		return nil
	}
	return c
}
