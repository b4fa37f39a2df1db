package api

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"HealthAgent/internal/agent/engine"
	"HealthAgent/internal/chat"
	"HealthAgent/internal/database/minio"
	"HealthAgent/internal/rag/pipeline"
	"HealthAgent/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handler 聚合了 API 处理函数依赖的服务。
type Handler struct {
	chatService *chat.Service
	indexer     *pipeline.IndexingPipeline
	stats       *engine.Stats
	log         *logger.Logger
}

func NewHandler(chatService *chat.Service, indexer *pipeline.IndexingPipeline, stats *engine.Stats, log *logger.Logger) *Handler {
	return &Handler{
		chatService: chatService,
		indexer:     indexer,
		stats:       stats,
		log:         log,
	}
}

type chatRequest struct {
	Message string                 `json:"message" binding:"required"`
	Context map[string]interface{} `json:"context"`
}

// Chat 处理 POST /api/v1/chat。
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体: " + err.Error()})
		return
	}
	userID := c.GetString("userID")

	reply, err := h.chatService.HandleUserMessage(c.Request.Context(), userID, req.Message, req.Context)
	if err != nil {
		h.log.WithError(logger.ErrorInfo{Message: err.Error()}).Error("处理对话请求失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "处理请求失败"})
		return
	}
	c.JSON(http.StatusOK, reply)
}

// ChatStream 处理 POST /api/v1/chat/stream，以 SSE 推送增量回复。
func (h *Handler) ChatStream(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体: " + err.Error()})
		return
	}
	userID := c.GetString("userID")

	stream, reply, err := h.chatService.HandleUserMessageStream(c.Request.Context(), userID, req.Message, req.Context)
	if err != nil {
		h.log.WithError(logger.ErrorInfo{Message: err.Error()}).Error("处理流式对话请求失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "处理请求失败"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// 先推送一条元数据事件，告知前端意图与工具执行情况。
	c.SSEvent("meta", gin.H{
		"intent":     reply.Intent,
		"confidence": reply.Confidence,
		"tools_used": reply.ToolsUsed,
		"sources":    reply.Sources,
	})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		chunk, ok := <-stream
		if !ok {
			c.SSEvent("done", "")
			return false
		}
		if chunk.Err != nil {
			c.SSEvent("error", chunk.Err.Error())
			return false
		}
		c.SSEvent("message", chunk.Content)
		return true
	})
}

type ingestRequest struct {
	Path   string `json:"path"`   // 服务器本地文件路径
	URL    string `json:"url"`    // 网页地址
	Bucket string `json:"bucket"` // MinIO 桶名
	Object string `json:"object"` // MinIO 对象名
}

// IngestDocument 处理 POST /api/v1/knowledge/documents。
// 支持本地路径、URL 或 MinIO 对象三种来源。
func (h *Handler) IngestDocument(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	var report *pipeline.IndexReport
	var err error

	switch {
	case req.URL != "":
		report, err = h.indexer.RunURL(ctx, req.URL)
	case req.Bucket != "" && req.Object != "":
		report, err = h.ingestFromMinIO(ctx, req.Bucket, req.Object)
	case req.Path != "":
		report, err = h.indexer.RunFile(ctx, req.Path)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "必须提供 path、url 或 bucket+object 之一"})
		return
	}

	if err != nil {
		h.log.WithError(logger.ErrorInfo{Message: err.Error()}).Error("文档入库失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) ingestFromMinIO(ctx context.Context, bucket, object string) (*pipeline.IndexReport, error) {
	localPath := filepath.Join(os.TempDir(), filepath.Base(strings.ReplaceAll(object, "..", "")))
	if err := minio.FetchObject(ctx, bucket, object, localPath); err != nil {
		return nil, err
	}
	defer os.Remove(localPath)
	return h.indexer.RunFile(ctx, localPath)
}

// ToolStats 处理 GET /api/v1/tools/stats。
func (h *Handler) ToolStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": h.stats.Snapshot()})
}
