package config

const (
	defaultSourceDir      = "~/photos/incoming"
	defaultDestDir        = "~/photos/archive"
	defaultSidecarExt     = ".aae"
	defaultClipExt        = ".mov"
	defaultHashThreshold  = 10
	defaultHashWorkers    = 4
	defaultExifBinary     = "exiftool"
	defaultExifChunkSize  = 800
	defaultExifTimeout    = 300
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultDuplicatesName = "duplicates"
	defaultOrphansName    = "orphan-sidecars"
	defaultReviewName     = "needs-review"
	defaultDataDirName    = ".snapsort"
	defaultDatabaseName   = "catalog.db"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SourceDir: defaultSourceDir,
			DestDir:   defaultDestDir,
		},
		Extensions: Extensions{
			Images:  []string{".jpg", ".jpeg", ".png", ".heic", ".heif", ".tif", ".tiff", ".gif", ".bmp", ".webp"},
			Videos:  []string{".mp4", ".mov", ".m4v", ".avi", ".mkv", ".3gp"},
			Raw:     []string{".dng", ".cr2", ".nef", ".arw"},
			Sidecar: defaultSidecarExt,
		},
		LivePairing: LivePairing{
			Enabled:    true,
			ClipExt:    defaultClipExt,
			MasterExts: []string{".heic", ".heif", ".jpg", ".jpeg"},
		},
		Hashing: Hashing{
			ThresholdMiB:        defaultHashThreshold,
			Workers:             defaultHashWorkers,
			VerifyTailCollision: true,
		},
		ExifTool: ExifTool{
			Binary:         defaultExifBinary,
			ChunkSize:      defaultExifChunkSize,
			TimeoutSeconds: defaultExifTimeout,
			InlineFallback: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
