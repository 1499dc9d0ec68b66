package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	MimeCSV = "text/csv"
)

// 缓存键
const (
	MasteryCacheKeyFmt = "mastery:student:%d"
)

// 通知事件类型
const (
	EventGradeUpdated = "grade.updated"
)
