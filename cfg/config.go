// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cfg holds the typed, validated configuration shared by the
// gatorfs shell and the gatorblockd server, bound from command-line flags
// via spf13/viper.
package cfg

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Severity selects the minimum log level emitted by internal/logger.
type Severity string

const (
	SeverityTrace   Severity = "TRACE"
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
	SeverityOff     Severity = "OFF"
)

// Config is the full set of process tunables for a GatorINFS client or
// block server, plus the ambient logging knobs. MaxFilename and
// InodeNumberSize are deliberately absent: they are compile-time
// constants in internal/layout and are never configurable.
type Config struct {
	ServerAddress string        `mapstructure:"server-address"`
	BasePort      int           `mapstructure:"base-port"`
	NumServers    int           `mapstructure:"num-servers"`
	ClientID      int           `mapstructure:"client-id"`
	TotalBlocks   int           `mapstructure:"total-blocks"`
	BlockSize     int           `mapstructure:"block-size"`
	MaxInodes     int           `mapstructure:"max-inodes"`
	InodeSize     int           `mapstructure:"inode-size"`
	SocketTimeout time.Duration `mapstructure:"socket-timeout"`
	RetryInterval time.Duration `mapstructure:"retry-interval"`
	LogSeverity   Severity      `mapstructure:"log-severity"`
	LogFormat     string        `mapstructure:"log-format"`
	LogFile       string        `mapstructure:"log-file"`
}

// MaxClients bounds the client-id space.
const MaxClients = 8

// BindFlags registers every Config field on flagSet and binds it into v,
// mirroring gcsfuse's cmd.BindFlags / viper.BindPFlag pattern.
func BindFlags(flagSet *pflag.FlagSet, v *viper.Viper) error {
	flagSet.String("server-address", "127.0.0.1", "Block server host shared by every stripe member.")
	flagSet.Int("base-port", 8000, "Port of server 0; server i listens on base-port+i.")
	flagSet.Int("num-servers", 4, "Number of independent block servers (N_SERVERS).")
	flagSet.Int("client-id", 0, "This client's id, in [0, MaxClients).")
	flagSet.Int("total-blocks", 256, "Total number of logical blocks (TOTAL_BLOCKS).")
	flagSet.Int("block-size", 128, "Block size in bytes (BLOCK_SIZE).")
	flagSet.Int("max-inodes", 16, "Maximum number of inodes (MAX_INODES).")
	flagSet.Int("inode-size", 16, "Size of one inode record in bytes (INODE_SIZE).")
	flagSet.Duration("socket-timeout", 5*time.Second, "Per-RPC socket timeout.")
	flagSet.Duration("retry-interval", 10*time.Second, "Sleep between retries after a socket timeout.")
	flagSet.String("log-severity", string(SeverityInfo), "TRACE|DEBUG|INFO|WARNING|ERROR|OFF.")
	flagSet.String("log-format", "text", "text|json.")
	flagSet.String("log-file", "", "Path to a rotated log file; empty means stderr.")

	for _, name := range []string{
		"server-address", "base-port", "num-servers", "client-id",
		"total-blocks", "block-size", "max-inodes", "inode-size",
		"socket-timeout", "retry-interval", "log-severity", "log-format", "log-file",
	} {
		if err := v.BindPFlag(name, flagSet.Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

// Unmarshal decodes v into a Config.
func Unmarshal(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}
