package fs

import (
	"bufio"
	"bytes"
	"os"
	"strings"

	logging "depined-bot/internal/infra/log"

	"go.uber.org/zap"
)

// DefaultTokensFile is where tokens are read from when nothing else is configured.
const DefaultTokensFile = "./data.txt"

// LoadTokens reads one bearer token per line, skipping blank lines.
// A read failure is logged and yields an empty list; callers treat that as
// "no accounts configured". Repeated tokens are kept once, first position wins.
func LoadTokens(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		logging.LogError("Error reading token file: "+err.Error(), zap.String("file", path), zap.Error(err))
		return []string{}
	}
	return ParseTokens(data)
}

// ParseTokens splits raw file contents into trimmed non-blank tokens.
func ParseTokens(data []byte) []string {
	tokens := []string{}
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		token := strings.TrimSpace(scanner.Text())
		if token == "" {
			continue
		}
		if _, dup := seen[token]; dup {
			logging.LogWarn("Duplicate token skipped", zap.Int("position", len(tokens)+1))
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}
	return tokens
}
