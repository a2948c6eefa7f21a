package config

const (
	delimiter = "."

	KeyLog       = "log"
	KeyLogLevel  = KeyLog + delimiter + "level"
	KeyLogFormat = KeyLog + delimiter + "format"

	KeyDispatch           = "dispatch"
	KeyDispatchBufferSize = KeyDispatch + delimiter + "buffer_size"
	KeyDispatchNumWorkers = KeyDispatch + delimiter + "num_workers"

	KeyCache            = "cache"
	KeyCacheNumCounters = KeyCache + delimiter + "num_counters"
	KeyCacheMaxCost     = KeyCache + delimiter + "max_cost"
	KeyCacheBufferItems = KeyCache + delimiter + "buffer_items"
)
