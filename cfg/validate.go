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

package cfg

import "fmt"

func isValidSeverity(s Severity) bool {
	switch s {
	case SeverityTrace, SeverityDebug, SeverityInfo, SeverityWarning, SeverityError, SeverityOff:
		return true
	default:
		return false
	}
}

// Validate returns a non-nil error if c cannot support a consistent
// block/inode/directory layout, mirroring gcsfuse's cfg.ValidateConfig.
func Validate(c Config) error {
	if c.NumServers < 2 {
		return fmt.Errorf("num-servers must be at least 2 (one data server plus one parity server), got %d", c.NumServers)
	}
	if c.ClientID < 0 || c.ClientID >= MaxClients {
		return fmt.Errorf("client-id must be in [0, %d), got %d", MaxClients, c.ClientID)
	}
	if c.BlockSize <= 0 || c.TotalBlocks <= 0 {
		return fmt.Errorf("block-size and total-blocks must be positive")
	}
	if c.TotalBlocks%c.BlockSize != 0 {
		return fmt.Errorf("block-size (%d) must divide total-blocks (%d) evenly for the free bitmap to cover every block", c.BlockSize, c.TotalBlocks)
	}
	if c.TotalBlocks%(c.NumServers-1) != 0 {
		return fmt.Errorf("num-servers-1 (%d) must divide total-blocks (%d) evenly for striping", c.NumServers-1, c.TotalBlocks)
	}
	if c.InodeSize <= 8 {
		return fmt.Errorf("inode-size must be greater than 8 to hold at least one direct block number, got %d", c.InodeSize)
	}
	if c.BlockSize%c.InodeSize != 0 {
		return fmt.Errorf("inode-size (%d) must divide block-size (%d) evenly", c.InodeSize, c.BlockSize)
	}
	if c.MaxInodes <= 0 {
		return fmt.Errorf("max-inodes must be positive")
	}
	if (c.MaxInodes*c.InodeSize)%c.BlockSize != 0 {
		return fmt.Errorf("max-inodes*inode-size (%d) must be a whole number of blocks (block-size=%d)", c.MaxInodes*c.InodeSize, c.BlockSize)
	}
	if c.TotalBlocks < 4 {
		return fmt.Errorf("total-blocks must leave room for boot, superblock, LAST_WRITER and RSM_LOCK, got %d", c.TotalBlocks)
	}
	if !isValidSeverity(c.LogSeverity) {
		return fmt.Errorf("log-severity must be one of TRACE, DEBUG, INFO, WARNING, ERROR, OFF, got %q", c.LogSeverity)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log-format must be text or json, got %q", c.LogFormat)
	}
	if c.SocketTimeout <= 0 {
		return fmt.Errorf("socket-timeout must be positive")
	}
	if c.RetryInterval <= 0 {
		return fmt.Errorf("retry-interval must be positive")
	}
	return nil
}
