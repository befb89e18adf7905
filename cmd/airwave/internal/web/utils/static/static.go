package static

import (
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
)

// CachedFileInfo holds the validator and size of one embedded asset.
type CachedFileInfo struct {
	ETag string
	Size int64
}

// StaticCache serves embedded client assets. Responses are never cached by
// browsers or proxies, so a redeploy is picked up on the next page load.
type StaticCache struct {
	fileLock sync.RWMutex
	entries  map[string]CachedFileInfo
	fs       fs.FS
}

// NewStaticCache hashes every file in fsys up front.
func NewStaticCache(fsys fs.FS) (*StaticCache, error) {
	c := &StaticCache{
		entries: make(map[string]CachedFileInfo),
		fs:      fsys,
	}

	c.fileLock.Lock()
	defer c.fileLock.Unlock()

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		f, err := fsys.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()

		h := sha256.New()
		n, err := io.Copy(h, f)
		if err != nil {
			return fmt.Errorf("hash %s: %w", p, err)
		}

		c.entries[p] = CachedFileInfo{
			ETag: fmt.Sprintf("\"%x\"", h.Sum(nil)),
			Size: n,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Lookup returns the cached metadata for an asset path.
func (s *StaticCache) Lookup(name string) (CachedFileInfo, bool) {
	s.fileLock.RLock()
	defer s.fileLock.RUnlock()
	ci, ok := s.entries[name]
	return ci, ok
}

// SetNoStoreHeaders marks a response as uncacheable everywhere.
func SetNoStoreHeaders(h http.Header) {
	h.Set(echo.HeaderCacheControl, "no-store, no-cache, must-revalidate, proxy-revalidate, max-age=0")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
	h.Set("Surrogate-Control", "no-store")
}

// ServeStaticFile serves the asset named by the request path after prefix.
func (s *StaticCache) ServeStaticFile(prefix string) echo.HandlerFunc {
	return func(c echo.Context) error {
		name := strings.TrimPrefix(c.Request().URL.Path, prefix)
		ci, ok := s.Lookup(name)
		if !ok {
			return echo.ErrNotFound
		}

		SetNoStoreHeaders(c.Response().Header())
		c.Response().Header().Set("ETag", ci.ETag)

		if inm := c.Request().Header.Get("If-None-Match"); inm != "" && inm == ci.ETag {
			return c.NoContent(http.StatusNotModified)
		}

		f, err := s.fs.Open(name)
		if err != nil {
			return echo.ErrNotFound
		}
		defer f.Close()

		contentType := mime.TypeByExtension(path.Ext(name))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(ci.Size, 10))

		return c.Stream(http.StatusOK, contentType, f)
	}
}
