package clickhouse

// schema is applied in order by Migrate. Snapshots use a ReplacingMergeTree
// keyed on _version so activation rewrites rows instead of updating them.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ratecard_snapshots (
		id         UUID,
		alias      LowCardinality(String),
		name       String,
		source     LowCardinality(String),
		hash       String,
		version    String,
		payload    String CODEC(ZSTD(3)),
		is_active  UInt8,
		created_at DateTime64(3, 'UTC'),
		_version   UInt64 DEFAULT 1,
		_deleted   UInt8 DEFAULT 0
	) ENGINE = ReplacingMergeTree(_version)
	ORDER BY (alias, id)`,

	`CREATE TABLE IF NOT EXISTS ratecard_rates (
		snapshot_id UUID,
		section     LowCardinality(String),
		escort_type LowCardinality(String),
		region      LowCardinality(String),
		unit        LowCardinality(String),
		low         Float64,
		high        Float64,
		created_at  DateTime64(3, 'UTC')
	) ENGINE = MergeTree
	ORDER BY (snapshot_id, section, escort_type, region)`,
}
