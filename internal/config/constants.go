package config

import "time"

// Application constants
const (
	// Application Info
	AppName    = "SilverPulse"
	AppVersion = "1.2.0"
	EnvPrefix  = "SILVER"

	// Upstream endpoints
	DefaultWarehouseURL = "https://www.cmegroup.com/delivery_reports/Silver_stocks.xls"
	DefaultETFURL       = "https://www.ishares.com/us/products/239855/ishares-silver-trust-fund"
	DefaultQuoteURL     = "https://query1.finance.yahoo.com/v7/finance/quote"
	DefaultQuotePageURL = "https://finance.yahoo.com/quote/%s/"
	DefaultBenchmarkURL = "https://www.sge.com.cn/sjzx/everyShyjzj"
	DefaultFXURL        = "https://open.er-api.com/v6/latest/USD"
	DefaultVaultBaseURL = "https://www.shfe.com.cn/data/dailydata/"
	DefaultTicker       = "SI=F"
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"

	// Network Timeouts
	WarehouseFetchTimeout = 30 * time.Second
	PageFetchTimeout      = 20 * time.Second
	QuoteFetchTimeout     = 10 * time.Second
	VaultFetchTimeout     = 5 * time.Second

	// Retry policy of the warehouse report
	WarehouseRetryAttempts = 3
	WarehouseRetryDelay    = 2 * time.Second

	// Cache Settings
	FetchCacheDuration = 1 * time.Hour

	// Regional sources
	FXFallbackCNYPerUSD = 7.20
	VaultDaysBack       = 10
	BenchmarkWindowDays = 30

	// Files (relative to the data directory)
	HistoryFileName     = "inventory_history.csv"
	ReportCacheFileName = "silver_stocks_data.xls"

	// History
	HistoryMinSpan = 3 * 365 * 24 * time.Hour

	// Scheduler
	DefaultRefreshSchedule = "@every 1h"

	// Log Settings
	DefaultLogLevel   = "info"
	MaxLogFileSizeMB  = 100
	MaxLogFileAgeDays = 30
	MaxLogFileBackups = 10
)
