package start

import (
	"fmt"
	"net"

	"certsync/pkg/core/config"
	"certsync/pkg/core/logger"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type Config struct {
	AppName  string               `yaml:"app-name"`
	Env      string               `yaml:"env"`
	Host     string               `yaml:"host"`
	Port     int                  `yaml:"port"`
	Log      config.LogConfig     `yaml:"log"`
	Database config.Database      `yaml:"db"`
	Crypto   config.CryptoConfig  `yaml:"crypto"`
	Acme     config.AcmeConfig    `yaml:"acme"`
	Deploy   config.DeployConfig  `yaml:"deploy"`
	Renewal  config.RenewalConfig `yaml:"renewal"`
}

type Configures struct {
	Config Config
	Logger *logger.Log
}

func NewConfigures(file []byte, env string) *Configures {
	cfg := Config{
		Acme:    config.DefaultAcmeConfig(),
		Deploy:  config.DefaultDeployConfig(),
		Renewal: config.DefaultRenewalConfig(),
	}
	err := yaml.Unmarshal(file, &cfg)
	if err != nil {
		panic(fmt.Sprintf("读取文件信息失败，因为%v", err))
	}

	cfg.Env = env
	cfg.Host, _ = getLocalIP()

	level := cfg.Log.Level
	if level == "" {
		level = "debug"
	}

	c := &Configures{
		Config: cfg,
		Logger: logger.InitLogger(level),
	}

	return c
}

// getLocalIP 获取本机IP地址（优先获取内网IP）
func getLocalIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				// 优先返回内网IP
				if ipnet.IP.IsPrivate() {
					return ipnet.IP.String(), nil
				}
			}
		}
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String(), nil
			}
		}
	}

	return "127.0.0.1", nil
}

func (c *Configures) EnableMysql() *gorm.DB {
	db, err := config.InitMysql(c.Config.Database)
	if err != nil {
		c.Logger.WithField("database", c.Config.Database.Host).WithField("err", err).Panic("failed connect database")
	}
	c.Logger.Info("connect database success")
	return db
}
