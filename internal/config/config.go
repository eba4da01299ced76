package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/tinode/jsonco"
)

// Config is read from config/config.json at startup and never mutated
// afterwards. Comments in the file are tolerated.
type Config struct {
	ServerWorkerNum int          `json:"serverWorkerNum"`
	HTTPWorkerNum   int          `json:"httpWorkerNum"`
	TLS             TLSConfig    `json:"tls"`
	Safety          SafetyConfig `json:"safety"`
	Protocol        ProtoConfig  `json:"protocol"`
	Email           EmailConfig  `json:"email"`
	User            UserConfig   `json:"user"`
	Database        DBConfig     `json:"database"`
	S3              S3Config     `json:"s3"`
}

type TLSConfig struct {
	Enable         bool   `json:"enable"`
	PrivateKeyFile string `json:"privateKeyFile"`
	CertChainFile  string `json:"certChainFile"`
}

type SafetyConfig struct {
	MaxMsgLength    int `json:"maxMsgLength"`
	MaxNoticeLength int `json:"maxNoticeLength"`
}

type ProtoConfig struct {
	MaxMessagesNumInOneChatWhenPulling   int64 `json:"maxMessagesNumInOneChatWhenPulling"`
	MaxMessagesNumInOneChatWhenGetting   int64 `json:"maxMessagesNumInOneChatWhenGetting"`
	WorkerSendMessagesMemberNumThreshold int   `json:"workerSendMessagesMemberNumThreshold"`
}

type EmailConfig struct {
	Enable             bool   `json:"enable"`
	Relay              string `json:"relay"`
	RelayUserName      string `json:"relayUserName"`
	RelayPassword      string `json:"relayPassword"`
	From               string `json:"from"`
	FromName           string `json:"fromName"`
	ConnectionPoolSize int    `json:"connectionPoolSize"`
	CoolDownSec        int64  `json:"coolDownSec"`
	ValidTimeSec       int64  `json:"validTimeSec"`
	EmailCodeLen       int    `json:"emailCodeLen"`
}

type UserConfig struct {
	TokenExpireTime   int64  `json:"tokenExpireTime"`
	MaxUserNameLength int    `json:"maxUserNameLength"`
	HeartBeatTime     int64  `json:"heartBeatTime"`
	PasswordCheck     string `json:"passwordCheck"`
	SenderRevokeExpire int64 `json:"senderRevokeExpire"`
}

type DBConfig struct {
	Address     string `json:"address"`
	PoolMaxOpen int    `json:"poolMaxOpen"`
	PoolMaxIdle int    `json:"poolMaxIdle"`
	PoolTimeout int64  `json:"poolTimeout"`
	PoolExpire  int64  `json:"poolExpire"`
}

type S3Config struct {
	Enable               bool   `json:"enable"`
	BucketName           string `json:"bucketName"`
	Region               string `json:"region"`
	Endpoint             string `json:"endpoint"`
	AccessKey            string `json:"accessKey"`
	SecretKey            string `json:"secretKey"`
	PresignPutFileExpire  int64 `json:"presignPutFileExpire"`
	PresignPutImageExpire int64 `json:"presignPutImageExpire"`
	PresignGetExpire      int64 `json:"presignGetExpire"`
}

var (
	current       *Config
	passwordRegex *regexp.Regexp
)

// Default returns the configuration written to disk when none exists.
func Default() *Config {
	return &Config{
		ServerWorkerNum: 4,
		HTTPWorkerNum:   2,
		Safety: SafetyConfig{
			MaxMsgLength:    500,
			MaxNoticeLength: 500,
		},
		Protocol: ProtoConfig{
			MaxMessagesNumInOneChatWhenPulling:   4,
			MaxMessagesNumInOneChatWhenGetting:   30,
			WorkerSendMessagesMemberNumThreshold: 5,
		},
		Email: EmailConfig{
			Enable:             false,
			ConnectionPoolSize: 4,
			CoolDownSec:        30,
			ValidTimeSec:       60,
			EmailCodeLen:       6,
		},
		User: UserConfig{
			TokenExpireTime:    604800,
			MaxUserNameLength:  32,
			HeartBeatTime:      5,
			PasswordCheck:      "^[a-fA-F0-9]{64}$",
			SenderRevokeExpire: 180,
		},
		Database: DBConfig{
			Address:     "redis://127.0.0.1:6379/",
			PoolMaxOpen: 16,
			PoolMaxIdle: 8,
			PoolTimeout: 1,
			PoolExpire:  60,
		},
		S3: S3Config{
			Enable:                false,
			PresignPutFileExpire:  3600,
			PresignPutImageExpire: 120,
			PresignGetExpire:      604800,
		},
	}
}

// Load reads the config file, writing defaults and returning an error if it
// does not exist yet. The loaded config becomes the process-wide value
// returned by Get.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		if werr := writeDefault(path); werr != nil {
			return nil, fmt.Errorf("write default config: %w", werr)
		}
		return nil, fmt.Errorf("config file %s not found, wrote defaults, edit it and restart", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg := Default()
	jr := jsonco.New(f)
	if err := json.NewDecoder(jr).Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := Set(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Set installs cfg as the process-wide configuration. Used directly by tests.
func Set(cfg *Config) error {
	re, err := regexp.Compile(cfg.User.PasswordCheck)
	if err != nil {
		return fmt.Errorf("compile passwordCheck: %w", err)
	}
	passwordRegex = re
	current = cfg
	return nil
}

// Get returns the loaded configuration. It panics when called before Load,
// which is always a programming error.
func Get() *Config {
	if current == nil {
		panic("config: Get called before Load")
	}
	return current
}

// PasswordRegex returns the compiled passwordCheck pattern.
func PasswordRegex() *regexp.Regexp {
	if passwordRegex == nil {
		panic("config: PasswordRegex called before Load")
	}
	return passwordRegex
}

func writeDefault(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(Default(), "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
