package api

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"dashapi/config"
	"dashapi/extract"
	"dashapi/registry"

	"github.com/gin-gonic/gin"
)

// Extractor is the slice of the extraction runner the handlers need.
type Extractor interface {
	Probe(ctx context.Context, url string) (*extract.MediaInfo, error)
	ResolveLink(ctx context.Context, url string, audio bool, quality string) (*extract.DirectLink, error)
	Download(ctx context.Context, opts extract.DownloadOptions, onProgress extract.ProgressFunc) (string, error)
}

// Translator relays prompt pairs to the completion API.
type Translator interface {
	Configured() bool
	Complete(ctx context.Context, systemPrompt, userMessage string) (int, []byte, error)
}

type Handler struct {
	extractor   Extractor
	jobs        *registry.Registry
	translator  Translator
	cfg         *config.Config
	proxyClient *http.Client
}

func NewHandler(ext Extractor, jobs *registry.Registry, tr Translator, cfg *config.Config) *Handler {
	return &Handler{
		extractor:  ext,
		jobs:       jobs,
		translator: tr,
		cfg:        cfg,
		proxyClient: &http.Client{
			Timeout: 30 * time.Minute, // media files can be large
		},
	}
}

// handleProgress is polled by the browser for the lifetime of one download.
func (h *Handler) handleProgress(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"progress": h.jobs.Read(c.Param("downloadId"))})
}

type formatsRequest struct {
	URL string `json:"url"`
}

// handleFormats probes a media URL for its available quality variants.
func (h *Handler) handleFormats(c *gin.Context) {
	var req formatsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL is required"})
		return
	}

	info, err := h.extractor.Probe(c.Request.Context(), req.URL)
	if err != nil {
		log.Printf("Format probe failed for %s: %v", req.URL, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get formats"})
		return
	}

	c.JSON(http.StatusOK, info)
}

type downloadRequest struct {
	URL           string `json:"url"`
	DownloadAudio bool   `json:"downloadAudio"`
	DownloadVideo bool   `json:"downloadVideo"`
	Quality       string `json:"quality"`
	DownloadID    string `json:"downloadId"`
}

// handleDownload runs a server-side download to completion, relaying parsed
// subprocess progress into the job registry as it arrives.
func (h *Handler) handleDownload(c *gin.Context) {
	var req downloadRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL is required"})
		return
	}

	// Mark the job active before spawning so an early poll sees 0, not -1.
	if req.DownloadID != "" {
		h.jobs.Begin(req.DownloadID)
	}

	_, err := h.extractor.Download(c.Request.Context(), extract.DownloadOptions{
		URL:     req.URL,
		Audio:   req.DownloadAudio,
		Video:   req.DownloadVideo,
		Quality: req.Quality,
		JobID:   req.DownloadID,
	}, h.jobs.Record)

	h.jobs.Complete(req.DownloadID, err == nil)

	if err != nil {
		log.Printf("Download failed for %s: %v", req.URL, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Download failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Download completed successfully!"})
}

type downloadLinkRequest struct {
	URL           string `json:"url"`
	DownloadAudio bool   `json:"downloadAudio"`
	Quality       string `json:"quality"`
}

// handleDownloadLink resolves a direct upstream URL without touching disk;
// the deployed variant pairs it with handleProxyDownload.
func (h *Handler) handleDownloadLink(c *gin.Context) {
	var req downloadLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL is required"})
		return
	}

	link, err := h.extractor.ResolveLink(c.Request.Context(), req.URL, req.DownloadAudio, req.Quality)
	if err != nil {
		log.Printf("Link resolve failed for %s: %v", req.URL, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get download link"})
		return
	}

	c.JSON(http.StatusOK, link)
}

// handleProxyDownload streams an already-resolved upstream URL back to the
// browser with attachment headers, so the final byte fetch never has to be a
// cross-origin request.
func (h *Handler) handleProxyDownload(c *gin.Context) {
	url := c.Query("url")
	filename := c.Query("filename")
	if url == "" || filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url and filename required"})
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, url, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid url"})
		return
	}
	req.Header.Set("User-Agent", h.cfg.UserAgent)

	resp, err := h.proxyClient.Do(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.JSON(resp.StatusCode, gin.H{"error": "Failed to fetch file"})
		return
	}

	if resp.ContentLength > h.cfg.MaxProxySize {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "File exceeds the proxy size limit"})
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sanitizeFilename(filename)))
	c.Header("Content-Type", contentType)
	if resp.ContentLength > 0 {
		c.Header("Content-Length", fmt.Sprintf("%d", resp.ContentLength))
	}
	c.Status(http.StatusOK)

	// Read one byte past the cap so an overflow is detectable, not silent.
	limited := &io.LimitedReader{R: resp.Body, N: h.cfg.MaxProxySize + 1}
	written, err := io.Copy(c.Writer, limited)
	if err != nil {
		// Headers are already out; all we can do is log the broken stream.
		log.Printf("Proxy stream interrupted for %s: %v", filename, err)
	} else if written > h.cfg.MaxProxySize {
		// Ending the body short of the advertised length makes the client
		// see a failed transfer instead of a silently truncated file.
		log.Printf("Proxy stream for %s exceeded the %d byte cap, aborting", filename, h.cfg.MaxProxySize)
	}
}

// sanitizeFilename strips characters that would break the attachment header.
func sanitizeFilename(name string) string {
	return strings.NewReplacer("\"", "", "\r", "", "\n", "").Replace(name)
}

type translateRequest struct {
	SystemPrompt string `json:"systemPrompt"`
	UserMessage  string `json:"userMessage"`
}

// handleTranslate relays a prompt pair to the completion API and mirrors the
// upstream status and raw JSON body.
func (h *Handler) handleTranslate(c *gin.Context) {
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SystemPrompt == "" || req.UserMessage == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "systemPrompt and userMessage are required"})
		return
	}

	if !h.translator.Configured() {
		log.Println("Translate request rejected: API key not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "API key not configured"})
		return
	}

	status, body, err := h.translator.Complete(c.Request.Context(), req.SystemPrompt, req.UserMessage)
	if err != nil {
		log.Printf("Translate relay failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(status, "application/json", body)
}
