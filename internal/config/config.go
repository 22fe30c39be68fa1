package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings keeps all configuration options.
type Settings struct {
	RPCURL             string
	ChainID            int64
	PrivateKeyHex      string
	MultisenderAddress string
	AssetsFile         string

	DirectoryURL       string
	DirectoryOrigin    string
	DirectoryNamespace string
	ResolveConcurrency int
	CacheDir           string
	CacheTTL           time.Duration

	TipRecipient string
	TipAmount    string

	PollInterval time.Duration
	PollAttempts int
	BaseFeeMul   int64
	GasBufferPct int64

	JournalPath string
	LogLevel    string
	ExplorerURL string
}

// Load reads settings from environment supporting both UPPER_CASE and lower_case keys.
func Load() Settings {
	get := func(keys []string, def string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				return v
			}
		}
		return def
	}
	getInt := func(keys []string, def int) int {
		s := get(keys, "")
		if s == "" {
			return def
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		return def
	}
	getInt64 := func(keys []string, def int64) int64 {
		s := get(keys, "")
		if s == "" {
			return def
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		return def
	}

	st := Settings{}
	st.RPCURL = get([]string{"rpc_url", "RPC_URL"}, "https://rpc.lens.xyz")
	st.ChainID = getInt64([]string{"chain_id", "CHAIN_ID"}, 232)
	st.PrivateKeyHex = get([]string{"private_key", "PRIVATE_KEY"}, "")
	st.MultisenderAddress = get([]string{"multisender_address", "MULTISENDER_ADDRESS"}, "")
	st.AssetsFile = get([]string{"assets_file", "ASSETS_FILE"}, "")

	st.DirectoryURL = get([]string{"directory_url", "DIRECTORY_URL"}, "https://api.lens.xyz/graphql")
	st.DirectoryOrigin = get([]string{"directory_origin", "DIRECTORY_ORIGIN"}, "https://send.token")
	st.DirectoryNamespace = get([]string{"directory_namespace", "DIRECTORY_NAMESPACE"}, "0x1aA55B9042f08f45825dC4b651B64c9F98Af4615")
	st.ResolveConcurrency = getInt([]string{"resolve_concurrency", "RESOLVE_CONCURRENCY"}, 1)
	st.CacheDir = get([]string{"cache_dir", "CACHE_DIR"}, "")
	st.CacheTTL = time.Duration(getInt64([]string{"cache_ttl_hours", "CACHE_TTL_HOURS"}, 24)) * time.Hour

	st.TipRecipient = get([]string{"tip_recipient", "TIP_RECIPIENT"}, "")
	st.TipAmount = get([]string{"tip_amount", "TIP_AMOUNT"}, "")

	st.PollInterval = time.Duration(getInt64([]string{"poll_interval_ms", "POLL_INTERVAL_MS"}, 2000)) * time.Millisecond
	st.PollAttempts = getInt([]string{"poll_attempts", "POLL_ATTEMPTS"}, 15)
	st.BaseFeeMul = getInt64([]string{"basefee_mul", "BASEFEE_MUL"}, 2)
	st.GasBufferPct = getInt64([]string{"gas_buffer_pct", "GAS_BUFFER_PCT"}, 20)
	if st.GasBufferPct < 0 {
		st.GasBufferPct = 0
	}

	st.JournalPath = get([]string{"journal_path", "JOURNAL_PATH"}, "")
	st.LogLevel = get([]string{"log_level", "LOG_LEVEL"}, "info")
	st.ExplorerURL = get([]string{"explorer_url", "EXPLORER_URL"}, "https://explorer.lens.xyz/tx/")

	return st
}
