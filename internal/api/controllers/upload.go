package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"appdist/internal/parser"
	releaseservice "appdist/internal/services/release_service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UploadController exposes the release ingestion pipeline over HTTP.
type UploadController struct {
	releaseService *releaseservice.ReleaseService
}

func NewUploadController(releaseService *releaseservice.ReleaseService) *UploadController {
	return &UploadController{releaseService: releaseService}
}

func (u *UploadController) RegisterRoutes(r *gin.RouterGroup) {
	apps := r.Group("/apps")
	apps.POST("/upload", u.Upload)

	r.GET("/channels/:slug/releases", u.ListChannelReleases)
}

// Upload handles one build upload. The file plus optional form fields
// map straight onto IngestParams; the shape of changelog/custom_fields
// is decided here, once, as raw text.
func (u *UploadController) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}

	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(file.Filename))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not buffer upload"})
		return
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := c.SaveUploadedFile(file, tmp.Name()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not buffer upload"})
		return
	}

	params := releaseservice.IngestParams{
		ChannelKey:   c.PostForm("channel_key"),
		UserID:       authenticatedUserID(c),
		AppName:      c.PostForm("name"),
		Password:     c.PostForm("password"),
		ReleaseType:  c.PostForm("release_type"),
		Source:       c.PostForm("source"),
		Changelog:    releaseservice.RawField{Text: c.PostForm("changelog")},
		CustomFields: releaseservice.RawField{Text: c.PostForm("custom_fields")},
		Branch:       c.PostForm("branch"),
		GitCommit:    c.PostForm("git_commit"),
		CIURL:        c.PostForm("ci_url"),
		Devices:      parseDeviceList(c.PostForm("devices")),
		FileName:     file.Filename,
		File:         tmp.Name(),
	}

	release, err := u.releaseService.Ingest(params)
	if err != nil {
		u.renderIngestError(c, err)
		return
	}

	changelog := release.Changelog
	if len(changelog) == 0 {
		changelog = releaseservice.EmptyChangelogPlaceholder(true)
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":              release.ID,
		"version":         release.Version,
		"release_version": release.ReleaseVersion,
		"build_version":   release.BuildVersion,
		"bundle_id":       release.BundleID,
		"changelog":       changelog,
		"file":            release.FilePath,
		"size":            release.FileSize,
		"sha256":          release.FileSHA256,
		"channel_slug":    release.Channel.Slug,
	})
}

// ListChannelReleases returns a channel's releases, newest first. A
// channel with a download gate requires the password.
func (u *UploadController) ListChannelReleases(c *gin.Context) {
	channel, err := u.releaseService.FetchChannelBySlug(c.Param("slug"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if !channel.CheckDownloadPassword(c.Query("password")) {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid channel password"})
		return
	}

	releases, err := u.releaseService.FetchChannelReleases(channel.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"channel":  channel.Name,
		"slug":     channel.Slug,
		"releases": releases,
	})
}

func (u *UploadController) renderIngestError(c *gin.Context, err error) {
	var parseErr *parser.ParseError
	var mismatch *releaseservice.BundleMismatchError

	switch {
	case errors.As(err, &parseErr):
		switch parseErr.Kind {
		case parser.KindUnsupportedFileType:
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unsupported file type"})
		case parser.KindMalformedPackage:
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "malformed package"})
		default:
			// Detail stays in the server log.
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not parse package"})
		}
	case errors.As(err, &mismatch):
		c.JSON(http.StatusConflict, gin.H{
			"error":    "bundle id mismatch",
			"expected": mismatch.Expected,
			"actual":   mismatch.Actual,
		})
	case errors.Is(err, releaseservice.ErrOwnerRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication or channel_key required"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload could not be persisted"})
	}
}

// authenticatedUserID reads the id AuthOptional stored, if any.
func authenticatedUserID(c *gin.Context) uint {
	raw, ok := c.Get("user_id")
	if !ok {
		return 0
	}
	str, ok := raw.(string)
	if !ok {
		return 0
	}
	id, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// parseDeviceList accepts a JSON string array or a comma-separated list.
func parseDeviceList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var udids []string
		if err := json.Unmarshal([]byte(raw), &udids); err == nil {
			return udids
		}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
