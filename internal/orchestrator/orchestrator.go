package orchestrator

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "mime"
    "net/http"
    "net/url"
    "strconv"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/rs/zerolog/log"

    "github.com/local/filemend/internal/archive"
    "github.com/local/filemend/internal/compress"
    "github.com/local/filemend/internal/intake"
    "github.com/local/filemend/internal/limiter"
    "github.com/local/filemend/internal/metrics"
    "github.com/local/filemend/internal/report"
    "github.com/local/filemend/internal/split"
    "github.com/local/filemend/internal/statuscheck"
    "github.com/local/filemend/internal/storage"
    "github.com/local/filemend/internal/store"
)

const (
    splitPrefix     = "split"
    pdfContentType  = "application/pdf"
    zipContentType  = "application/zip"
    xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Dependencies struct {
    Store    store.JobStore
    Blobs    storage.Blobs
    Runner   *Runner
    Notices  *Notices
    Screener *intake.Screener
    Planner  *split.Planner
    Splitter *split.Splitter
    Limiter  *limiter.Limiter
    Status   *statuscheck.Checker
}

type Config struct {
    DownloadPrefix string
    ZipPrefix      string
    MaxUploadBytes int64
}

type Orchestrator struct {
    deps Dependencies
    cfg  Config
    now  func() time.Time
}

func New(deps Dependencies, cfg Config) *Orchestrator {
    if cfg.DownloadPrefix == "" { cfg.DownloadPrefix = "compressed_" }
    if cfg.ZipPrefix == "" { cfg.ZipPrefix = "compressed_pdfs_" }
    if cfg.MaxUploadBytes <= 0 { cfg.MaxUploadBytes = 64 << 20 }
    if deps.Notices == nil { deps.Notices = NewNotices(0) }
    return &Orchestrator{deps: deps, cfg: cfg, now: time.Now}
}

func (o *Orchestrator) RegisterRoutes(mux *http.ServeMux) {
    mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request){ w.WriteHeader(http.StatusOK); _,_ = w.Write([]byte("ok")) })
    mux.HandleFunc("GET /status", o.handleStatus)
    mux.Handle("GET /metrics", metrics.Handler())

    mux.Handle("POST /compress/files", o.limited(o.handleUpload))
    mux.HandleFunc("GET /compress/files", o.handleList)
    mux.HandleFunc("GET /compress/files/{id}", o.handleGet)
    mux.HandleFunc("DELETE /compress/files/{id}", o.handleDelete)
    mux.HandleFunc("POST /compress/files/{id}/compress", o.handleCompressOne)
    mux.HandleFunc("GET /compress/files/{id}/download", o.handleDownload)
    mux.HandleFunc("POST /compress/batch", o.handleBatch)
    mux.HandleFunc("GET /compress/batch/{id}", o.handleBatchStatus)
    mux.HandleFunc("GET /compress/archive", o.handleArchive)
    mux.HandleFunc("GET /compress/stats", o.handleStats)
    mux.HandleFunc("GET /compress/report", o.handleReport)

    mux.Handle("POST /split/plan", o.limited(o.handleSplitPlan))
    mux.Handle("POST /split", o.limited(o.handleSplit))
    mux.HandleFunc("GET /split/{id}/parts/{name}", o.handleSplitPart)

    mux.HandleFunc("GET /notices", o.handleNotices)
}

func (o *Orchestrator) limited(h http.HandlerFunc) http.Handler {
    if o.deps.Limiter == nil { return h }
    return o.deps.Limiter.Middleware(h)
}

type uploadResp struct {
    Accepted   []compress.FileJob `json:"accepted"`
    Rejected   []intake.Rejection `json:"rejected"`
    Duplicates []intake.Rejection `json:"duplicates"`
}

func (o *Orchestrator) handleUpload(w http.ResponseWriter, r *http.Request) {
    r.Body = http.MaxBytesReader(w, r.Body, o.cfg.MaxUploadBytes)
    if err := r.ParseMultipartForm(32 << 20); err != nil {
        writeError(w, fmt.Errorf("%w: invalid multipart form: %w", compress.ErrInvalidInput, err)); return
    }
    defer r.MultipartForm.RemoveAll()
    headers := r.MultipartForm.File["files"]
    if len(headers) == 0 { writeError(w, fmt.Errorf("%w: no files uploaded", compress.ErrInvalidInput)); return }

    files := make([]intake.File, 0, len(headers))
    for _, h := range headers {
        f, err := h.Open()
        if err != nil { writeError(w, fmt.Errorf("open upload %s: %w", h.Filename, err)); return }
        data, err := io.ReadAll(f)
        f.Close()
        if err != nil { writeError(w, fmt.Errorf("read upload %s: %w", h.Filename, err)); return }
        files = append(files, intake.File{Name: h.Filename, ContentType: h.Header.Get("Content-Type"), Data: data})
    }

    existing, err := o.deps.Store.List(r.Context())
    if err != nil { writeError(w, err); return }
    keys := make([]intake.Key, len(existing))
    for i, j := range existing { keys[i] = intake.Key{Name: j.Name, Size: j.OriginalSize} }

    res := o.deps.Screener.Screen(files, keys)
    resp := uploadResp{Accepted: []compress.FileJob{}, Rejected: res.Rejected, Duplicates: res.Duplicates}
    for _, rej := range res.Rejected {
        metrics.IncRejected(compress.Kind(rej.Err))
        o.deps.Notices.Push(NoticeRejected, "", fmt.Sprintf("%s rejected: %s", rej.Name, rej.Reason))
    }
    for _, dup := range res.Duplicates {
        metrics.IncRejected(compress.Kind(dup.Err))
        o.deps.Notices.Push(NoticeDuplicate, "", fmt.Sprintf("%s is already in the list; skipped", dup.Name))
    }
    for _, f := range res.Accepted {
        job := compress.NewFileJob(uuid.NewString(), f.Name, f.Data)
        if err := o.deps.Blobs.Put(r.Context(), storage.SourceKey(job.ID), f.Data); err != nil {
            writeError(w, fmt.Errorf("store source %s: %w", f.Name, err)); return
        }
        if err := o.deps.Store.Put(r.Context(), *job); err != nil {
            writeError(w, fmt.Errorf("create job %s: %w", f.Name, err)); return
        }
        log.Info().Str("job_id", job.ID).Str("name", job.Name).Int64("size", job.OriginalSize).Msg("job created")
        resp.Accepted = append(resp.Accepted, job.Snapshot())
    }
    status := http.StatusOK
    if len(resp.Accepted) > 0 { status = http.StatusCreated }
    writeJSON(w, status, resp)
}

func (o *Orchestrator) handleList(w http.ResponseWriter, r *http.Request) {
    jobs, err := o.deps.Store.List(r.Context())
    if err != nil { writeError(w, err); return }
    if jobs == nil { jobs = []compress.FileJob{} }
    writeJSON(w, http.StatusOK, map[string]any{"files": jobs})
}

func (o *Orchestrator) handleGet(w http.ResponseWriter, r *http.Request) {
    job, err := o.deps.Store.Get(r.Context(), r.PathValue("id"))
    if err != nil { writeError(w, err); return }
    writeJSON(w, http.StatusOK, job)
}

func (o *Orchestrator) handleDelete(w http.ResponseWriter, r *http.Request) {
    id := r.PathValue("id")
    ok, err := o.deps.Runner.Delete(r.Context(), id)
    if err != nil { writeError(w, err); return }
    if !ok { writeError(w, store.ErrNotFound); return }
    log.Info().Str("job_id", id).Msg("job deleted")
    w.WriteHeader(http.StatusNoContent)
}

func (o *Orchestrator) handleCompressOne(w http.ResponseWriter, r *http.Request) {
    job, err := o.deps.Store.Get(r.Context(), r.PathValue("id"))
    if err != nil { writeError(w, err); return }
    if job.Status != compress.StatusPending {
        writeError(w, fmt.Errorf("%w: %s is %s", compress.ErrNotPending, job.Name, job.Status)); return
    }
    o.submit(w, []string{job.ID})
}

func (o *Orchestrator) handleBatch(w http.ResponseWriter, r *http.Request) {
    jobs, err := o.deps.Store.List(r.Context())
    if err != nil { writeError(w, err); return }
    var ids []string
    for _, j := range jobs {
        if j.Status == compress.StatusPending { ids = append(ids, j.ID) }
    }
    if len(ids) == 0 { writeError(w, fmt.Errorf("%w: no pending files", compress.ErrNotPending)); return }
    o.submit(w, ids)
}

func (o *Orchestrator) submit(w http.ResponseWriter, ids []string) {
    b, err := o.deps.Runner.Submit(ids)
    if err != nil { writeError(w, err); return }
    writeJSON(w, http.StatusAccepted, b)
}

func (o *Orchestrator) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
    b, ok := o.deps.Runner.Batch(r.PathValue("id"))
    if !ok { http.Error(w, "batch not found", http.StatusNotFound); return }
    writeJSON(w, http.StatusOK, b)
}

func (o *Orchestrator) handleDownload(w http.ResponseWriter, r *http.Request) {
    job, err := o.deps.Store.Get(r.Context(), r.PathValue("id"))
    if err != nil { writeError(w, err); return }
    if job.Status != compress.StatusDone {
        http.Error(w, fmt.Sprintf("%s is %s", job.Name, job.Status), http.StatusConflict); return
    }
    data, err := o.deps.Blobs.Get(r.Context(), storage.ResultKey(job.ID))
    if err != nil { writeError(w, err); return }
    writeFile(w, pdfContentType, o.cfg.DownloadPrefix+job.Name, data)
}

func (o *Orchestrator) handleArchive(w http.ResponseWriter, r *http.Request) {
    jobs, err := o.deps.Store.List(r.Context())
    if err != nil { writeError(w, err); return }
    var done []compress.FileJob
    var names []string
    for _, j := range jobs {
        if j.Status != compress.StatusDone { continue }
        done = append(done, j)
        names = append(names, o.cfg.DownloadPrefix+j.Name)
    }
    if len(done) == 0 { http.Error(w, "no compressed files", http.StatusNotFound); return }
    names = archive.UniqueNames(names)
    entries := make([]archive.Entry, 0, len(done))
    for i, j := range done {
        data, err := o.deps.Blobs.Get(r.Context(), storage.ResultKey(j.ID))
        if err != nil {
            log.Warn().Err(err).Str("job_id", j.ID).Msg("result missing; left out of archive")
            continue
        }
        entries = append(entries, archive.Entry{Name: names[i], Data: data})
    }
    zipped, err := archive.Bundle(entries)
    if err != nil { writeError(w, err); return }
    writeFile(w, zipContentType, archive.Name(o.cfg.ZipPrefix, o.now()), zipped)
}

func (o *Orchestrator) handleStats(w http.ResponseWriter, r *http.Request) {
    jobs, err := o.deps.Store.List(r.Context())
    if err != nil { writeError(w, err); return }
    writeJSON(w, http.StatusOK, report.Summarize(jobs))
}

func (o *Orchestrator) handleReport(w http.ResponseWriter, r *http.Request) {
    jobs, err := o.deps.Store.List(r.Context())
    if err != nil { writeError(w, err); return }
    data, err := report.Workbook(jobs)
    if err != nil { writeError(w, err); return }
    name := "compression_report_" + o.now().UTC().Format("2006-01-02") + ".xlsx"
    writeFile(w, xlsxContentType, name, data)
}

// readSplitForm reads the uploaded "file" and the JSON "options" field.
func (o *Orchestrator) readSplitForm(w http.ResponseWriter, r *http.Request) ([]byte, split.Request, error) {
    var req split.Request
    r.Body = http.MaxBytesReader(w, r.Body, o.cfg.MaxUploadBytes)
    if err := r.ParseMultipartForm(32 << 20); err != nil {
        return nil, req, fmt.Errorf("%w: invalid multipart form: %w", compress.ErrInvalidInput, err)
    }
    f, _, err := r.FormFile("file")
    if err != nil { return nil, req, fmt.Errorf("%w: missing file", compress.ErrInvalidInput) }
    defer f.Close()
    data, err := io.ReadAll(f)
    if err != nil { return nil, req, fmt.Errorf("read upload: %w", err) }
    if opts := r.FormValue("options"); opts != "" {
        if err := json.Unmarshal([]byte(opts), &req); err != nil {
            return nil, req, fmt.Errorf("%w: invalid options: %v", compress.ErrInvalidInput, err)
        }
    }
    return data, req, nil
}

func (o *Orchestrator) handleSplitPlan(w http.ResponseWriter, r *http.Request) {
    data, req, err := o.readSplitForm(w, r)
    if r.MultipartForm != nil { defer r.MultipartForm.RemoveAll() }
    if err != nil { writeError(w, err); return }
    plan, err := o.deps.Planner.Plan(r.Context(), data, req)
    if err != nil { writeError(w, err); return }
    writeJSON(w, http.StatusOK, plan)
}

type splitResp struct {
    ID    string      `json:"id"`
    Parts []splitPart `json:"parts"`
}

type splitPart struct {
    split.Part
    URL string `json:"url"`
}

func (o *Orchestrator) handleSplit(w http.ResponseWriter, r *http.Request) {
    if o.deps.Limiter != nil {
        release, ok := o.deps.Limiter.Allow("split")
        if !ok {
            w.Header().Set("Retry-After", "5")
            http.Error(w, "too many split requests in progress", http.StatusTooManyRequests); return
        }
        defer release()
    }
    data, req, err := o.readSplitForm(w, r)
    if r.MultipartForm != nil { defer r.MultipartForm.RemoveAll() }
    if err != nil { writeError(w, err); return }

    var groups []split.Group
    if raw := r.FormValue("groups"); raw != "" {
        if err := json.Unmarshal([]byte(raw), &groups); err != nil {
            writeError(w, fmt.Errorf("%w: invalid groups: %v", compress.ErrInvalidInput, err)); return
        }
        in, err := o.deps.Planner.Describe(data)
        if err != nil { writeError(w, err); return }
        if groups, err = split.Normalize(in, groups); err != nil { writeError(w, err); return }
        if req.Mode == "" { req.Mode = split.ModeManual }
    } else {
        plan, err := o.deps.Planner.Plan(r.Context(), data, req)
        if err != nil { writeError(w, err); return }
        groups = plan.Groups
    }

    res, err := o.deps.Splitter.Split(r.Context(), data, groups, nil)
    if err != nil { writeError(w, err); return }
    metrics.AddSplitParts(string(req.Mode), len(res.Parts))
    log.Info().Str("mode", string(req.Mode)).Int("parts", len(res.Parts)).Bool("archive", res.Archive != nil).Msg("document split")

    if res.Archive != nil {
        writeFile(w, zipContentType, res.ArchiveName, res.Archive); return
    }
    id := uuid.NewString()
    resp := splitResp{ID: id, Parts: make([]splitPart, 0, len(res.Parts))}
    for _, p := range res.Parts {
        if err := o.deps.Blobs.Put(r.Context(), storage.PartKey(id, p.Name), p.Data); err != nil {
            writeError(w, fmt.Errorf("store part %s: %w", p.Name, err)); return
        }
        resp.Parts = append(resp.Parts, splitPart{Part: p, URL: "/split/" + id + "/parts/" + url.PathEscape(p.Name)})
    }
    writeJSON(w, http.StatusCreated, resp)
}

func (o *Orchestrator) handleSplitPart(w http.ResponseWriter, r *http.Request) {
    id, name := r.PathValue("id"), r.PathValue("name")
    if !pathSegment(id) || !pathSegment(name) {
        http.Error(w, "invalid part", http.StatusBadRequest); return
    }
    data, err := o.deps.Blobs.Get(r.Context(), storage.PartKey(id, name))
    if err != nil { writeError(w, err); return }
    writeFile(w, pdfContentType, name, data)
}

// pathSegment reports whether s names a single entry below its parent. Dots
// inside a name such as "v1..2.pdf" are fine.
func pathSegment(s string) bool {
    return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

func (o *Orchestrator) handleNotices(w http.ResponseWriter, r *http.Request) {
    var since int64
    if v := r.URL.Query().Get("since"); v != "" {
        n, err := strconv.ParseInt(v, 10, 64)
        if err != nil { http.Error(w, "invalid since", http.StatusBadRequest); return }
        since = n
    }
    writeJSON(w, http.StatusOK, map[string]any{"notices": o.deps.Notices.Since(since)})
}

func (o *Orchestrator) handleStatus(w http.ResponseWriter, r *http.Request) {
    if o.deps.Status == nil { writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}); return }
    ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
    defer cancel()
    sum := o.deps.Status.Summary(ctx)
    status := http.StatusOK
    if !sum.Healthy() { status = http.StatusServiceUnavailable }
    writeJSON(w, status, sum)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(v)
}

func writeFile(w http.ResponseWriter, contentType, name string, data []byte) {
    w.Header().Set("Content-Type", contentType)
    w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
    w.Header().Set("Content-Length", strconv.Itoa(len(data)))
    _, _ = w.Write(data)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
    var maxErr *http.MaxBytesError
    switch {
    case errors.As(err, &maxErr):
        return http.StatusRequestEntityTooLarge
    case errors.Is(err, compress.ErrInvalidInput):
        return http.StatusBadRequest
    case errors.Is(err, store.ErrNotFound), errors.Is(err, storage.ErrNotFound):
        return http.StatusNotFound
    case errors.Is(err, compress.ErrNotPending):
        return http.StatusConflict
    case errors.Is(err, ErrQueueFull):
        return http.StatusServiceUnavailable
    default:
        return http.StatusInternalServerError
    }
}

func writeError(w http.ResponseWriter, err error) {
    status := statusFor(err)
    if status >= http.StatusInternalServerError { log.Error().Err(err).Int("status", status).Msg("request failed") }
    writeJSON(w, status, map[string]string{"error": err.Error(), "kind": compress.Kind(err)})
}
