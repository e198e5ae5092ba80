package util

import (
	_ "embed"
	"fmt"
	"gopkg.in/yaml.v3"
	"log"
	"os"
	"strconv"
)

const Name = "piaf"
const ConfigFileName = "config.yaml"

//go:embed config_default.yaml
var embeddedConfig []byte

type AppConfig struct {
	Conf struct {
		Host     string
		HttpPort int    `yaml:"httpPort"`
		DataDir  string `yaml:"dataDir"`
		Backend  string `yaml:"backend"` // "json" or "sqlite"
	}
	Limits struct {
		PostMaxLen      int `yaml:"postMaxLen"`
		ReplyMaxLen     int `yaml:"replyMaxLen"`
		ReportThreshold int `yaml:"reportThreshold"`
	}
	Password struct {
		MinLen int `yaml:"minLen"`
	}
}

func ReadConf() (*AppConfig, error) {

	c := &AppConfig{}

	// Try to resolve config file path (local first, then user dir)
	configPath := ResolveFilePath(ConfigFileName)

	var buf []byte
	var err error

	// Try to read from resolved path
	buf, err = os.ReadFile(configPath)
	if err != nil {
		// If file doesn't exist, use embedded config and create user config file
		log.Printf("Config file not found at %s, using embedded defaults", configPath)
		buf = embeddedConfig

		// Try to write default config to user config directory
		configDir, dirErr := GetConfigDir()
		if dirErr == nil {
			userConfigPath := configDir + "/" + ConfigFileName
			writeErr := os.WriteFile(userConfigPath, embeddedConfig, 0644)
			if writeErr != nil {
				log.Printf("Warning: could not write default config to %s: %v", userConfigPath, writeErr)
			} else {
				log.Printf("Created default config file at %s", userConfigPath)
			}
		}
	}

	err = yaml.Unmarshal(buf, c)
	if err != nil {
		return nil, fmt.Errorf("in config file: %w", err)
	}

	envHost := os.Getenv("PIAF_HOST")
	envHttpPort := os.Getenv("PIAF_HTTPPORT")
	envDataDir := os.Getenv("PIAF_DATADIR")
	envBackend := os.Getenv("PIAF_BACKEND")
	envPostMaxLen := os.Getenv("PIAF_POST_MAXLEN")
	envReplyMaxLen := os.Getenv("PIAF_REPLY_MAXLEN")
	envReportThreshold := os.Getenv("PIAF_REPORT_THRESHOLD")
	envPasswordMinLen := os.Getenv("PIAF_PASSWORD_MINLEN")

	if envHost != "" {
		c.Conf.Host = envHost
	}

	if envHttpPort != "" {
		v, err := strconv.Atoi(envHttpPort)
		if err != nil {
			fmt.Println(err)
		}
		c.Conf.HttpPort = v
	}

	if envDataDir != "" {
		c.Conf.DataDir = envDataDir
	}

	if envBackend != "" {
		c.Conf.Backend = envBackend
	}

	if envPostMaxLen != "" {
		v, err := strconv.Atoi(envPostMaxLen)
		if err != nil {
			fmt.Println(err)
		}
		c.Limits.PostMaxLen = v
	}

	if envReplyMaxLen != "" {
		v, err := strconv.Atoi(envReplyMaxLen)
		if err != nil {
			fmt.Println(err)
		}
		c.Limits.ReplyMaxLen = v
	}

	if envReportThreshold != "" {
		v, err := strconv.Atoi(envReportThreshold)
		if err != nil {
			fmt.Println(err)
		}
		c.Limits.ReportThreshold = v
	}

	if envPasswordMinLen != "" {
		v, err := strconv.Atoi(envPasswordMinLen)
		if err != nil {
			fmt.Println(err)
		}
		c.Password.MinLen = v
	}

	return c, nil
}
