// Package consts defines application-wide constants.
package consts

import "time"

const (
	// DefaultHandlerTimeout is the default timeout for HTTP handlers.
	DefaultHandlerTimeout = 30 * time.Second
	// DefaultSimulateTime is the default time to simulate a download in the mock engine.
	DefaultSimulateTime = 1 * time.Second
	// DefaultDispatchQueue is the buffer size of the dispatch loop.
	DefaultDispatchQueue = 256
	// CompletionThreshold is the aggregate progress at which all tasks count as done.
	CompletionThreshold = 0.99
)

// Result strings returned by the downloader.
const (
	// ResultPaused is the fixed marker returned when a download was cancelled by pause.
	ResultPaused = "已暂停"
	// ResultErrorPrefix prefixes every failure message.
	ResultErrorPrefix = "错误: "
	// ResultVideoDone is returned after a successful video download.
	ResultVideoDone = "视频下载完成"
	// ResultAudioDoneMP3 is returned after a successful audio download transcoded to mp3.
	ResultAudioDoneMP3 = "Audio Download Complete (MP3)"
	// ResultAudioDoneNative is the format for an audio download left in its native container.
	ResultAudioDoneNative = "Audio Download Complete (Saved as .%s - Install FFmpeg for MP3)"
	// ResultNoInfo is returned when thumbnail metadata could not be fetched.
	ResultNoInfo = "无法获取信息"
	// ResultNoThumbnail is returned when the metadata has no thumbnail.
	ResultNoThumbnail = "未找到封面"
	// ResultThumbnailFailed is returned on a non-200 thumbnail response.
	ResultThumbnailFailed = "下载封面失败"
	// ResultThumbnailDone is the format for a saved thumbnail.
	ResultThumbnailDone = "封面已下载: %s"
)

// Progress status strings.
const (
	StatusProcessing = "处理中..."
	StatusConverting = "转换中..."
	StatusFinishing  = "完成中..."
	UnknownSize      = "Unknown size"
	UnknownSpeed     = "Unknown speed"
	UnknownETA       = "Unknown"
)

// Session status strings.
const (
	StatusChecking       = "正在获取视频信息..."
	StatusCheckFailed    = "获取信息失败"
	StatusVideoFound     = "视频已找到！请选择画质。"
	StatusStartFormat    = "开始下载 %s..."
	StatusThumbnail      = "正在下载封面..."
	StatusPaused         = "下载已暂停"
	StatusAllDone        = "所有任务已完成"
	StatusTaskFormat     = "%s: %s"
	StatusDetailFormat   = "[%s] %s"
	StatusStateFormat    = "状态 (%s): %s"
	StatusDownloadFormat = "下载中... %d%% (剩余时间: %s)"
	UnknownTitle         = "Unknown Title"
)

// HTTP response messages.
const (
	// RespInvalidRequestBody is returned when the request body is invalid.
	RespInvalidRequestBody = "invalid request body"
	// RespUnprocessableEntity is returned when the request cannot be processed.
	RespUnprocessableEntity = "unprocessable entity"
	// RespCheckStarted is returned when a metadata lookup is started.
	RespCheckStarted = "check started"
	// RespDownloadStarted is returned when a download task is started.
	RespDownloadStarted = "download started"
	// RespDownloadStartFail is returned when a download task cannot be started.
	RespDownloadStartFail = "download start failed"
	// RespTaskRunning is returned when the task is already in flight.
	RespTaskRunning = "task already running"
	// RespUnknownQuality is returned when the quality label is not in the catalog.
	RespUnknownQuality = "unknown quality"
	// RespPaused is returned after pause.
	RespPaused = "paused"
	// RespResumed is returned after resume.
	RespResumed = "resumed"
	// RespStatusRetrieved is returned with the session snapshot.
	RespStatusRetrieved = "status retrieved"
)

// Engine identifiers.
const (
	// EngineYTdlp is the yt-dlp engine identifier.
	EngineYTdlp = "ytdlp"
	// EngineMock is the mock engine identifier for testing.
	EngineMock = "mock"
)

// MetricsNamespace prefixes every exported metric.
const MetricsNamespace = "vidfetch"
