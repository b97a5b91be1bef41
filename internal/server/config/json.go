package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/weddingtma/internal/flagx"
	"github.com/dmitrijs2005/weddingtma/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file. Only
// non-zero values override what is already in Config.
type JsonConfig struct {
	EndpointAddrHTTP    string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC    string         `json:"endpoint_addr_grpc"`
	DatabaseDSN         string         `json:"database_dsn"`
	SecretKey           string         `json:"secret_key"`
	SessionTTL          timex.Duration `json:"session_ttl"`
	TokenTransport      string         `json:"token_transport"`
	BotTokens           []string       `json:"bot_tokens"`
	AdminTelegramIDs    []string       `json:"admin_telegram_ids"`
	InitDataMaxAge      timex.Duration `json:"init_data_max_age"`
	StorageProvider     string         `json:"storage_provider"`
	StorageTimeout      timex.Duration `json:"storage_timeout"`
	CloudinaryCloudName string         `json:"cloudinary_cloud_name"`
	CloudinaryAPIKey    string         `json:"cloudinary_api_key"`
	CloudinaryAPISecret string         `json:"cloudinary_api_secret"`
	S3AccessKey         string         `json:"s3_access_key"`
	S3SecretKey         string         `json:"s3_secret_key"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	S3PublicBaseURL     string         `json:"s3_public_base_url"`
	CORSOrigins         []string       `json:"cors_origins"`
	AMQPURL             string         `json:"amqp_url"`
	AMQPExchange        string         `json:"amqp_exchange"`
	LogBackend          string         `json:"log_backend"`
}

// parseJson loads the file named by -c/-config (or CONFIG) into config.
// No file named means nothing to do.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.TokenTransport, c.TokenTransport)
	setString(&config.StorageProvider, c.StorageProvider)
	setString(&config.CloudinaryCloudName, c.CloudinaryCloudName)
	setString(&config.CloudinaryAPIKey, c.CloudinaryAPIKey)
	setString(&config.CloudinaryAPISecret, c.CloudinaryAPISecret)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicBaseURL, c.S3PublicBaseURL)
	setString(&config.AMQPURL, c.AMQPURL)
	setString(&config.AMQPExchange, c.AMQPExchange)
	setString(&config.LogBackend, c.LogBackend)

	if c.SessionTTL.Duration != 0 {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.InitDataMaxAge.Duration != 0 {
		config.InitDataMaxAge = c.InitDataMaxAge.Duration
	}
	if c.StorageTimeout.Duration != 0 {
		config.StorageTimeout = c.StorageTimeout.Duration
	}
	if len(c.BotTokens) > 0 {
		config.BotTokens = c.BotTokens
	}
	if len(c.AdminTelegramIDs) > 0 {
		config.AdminTelegramIDs = c.AdminTelegramIDs
	}
	if len(c.CORSOrigins) > 0 {
		config.CORSOrigins = c.CORSOrigins
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
