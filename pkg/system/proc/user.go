package proc

import (
	"bytes"
	"context"
	"log/slog"
	"os/user"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ja7ad/procmetrics/pkg/system/command"
)

const (
	defaultUserCacheSize = 1024
	getentTimeout        = 2 * time.Second
)

// UserResolver maps owner uids to user names. Lookups go through the system
// user database first and getent second; when both fail the numeric uid is
// used. Results, including the numeric placeholder, are cached per uid.
type UserResolver struct {
	log    *slog.Logger
	cache  *lru.Cache[uint32, string]
	lookup func(uid string) (*user.User, error)
	run    command.Runner
}

// NewUserResolver returns a resolver caching up to size uids.
func NewUserResolver(size int, run command.Runner) *UserResolver {
	if size <= 0 {
		size = defaultUserCacheSize
	}
	if run == nil {
		run = command.Run
	}
	cache, _ := lru.New[uint32, string](size)
	return &UserResolver{
		log:    slog.With("component", "proc.UserResolver"),
		cache:  cache,
		lookup: user.LookupId,
		run:    run,
	}
}

// Name returns the user name for uid, never an empty string.
func (r *UserResolver) Name(ctx context.Context, uid uint32) string {
	if name, ok := r.cache.Get(uid); ok {
		return name
	}
	id := strconv.FormatUint(uint64(uid), 10)
	name := r.resolve(ctx, id)
	r.cache.Add(uid, name)
	return name
}

func (r *UserResolver) resolve(ctx context.Context, id string) string {
	if u, err := r.lookup(id); err == nil && u.Username != "" {
		return u.Username
	}

	ctx, cancel := context.WithTimeout(ctx, getentTimeout)
	defer cancel()
	out, err := r.run(ctx, "getent", "passwd", id)
	if err != nil {
		r.log.Debug("can't resolve username", "uid", id, "error", err)
		return id
	}
	// name:passwd:uid:gid:gecos:home:shell
	line, _, _ := bytes.Cut(out, []byte("\n"))
	name, _, ok := bytes.Cut(line, []byte(":"))
	if !ok || len(name) == 0 {
		return id
	}
	return string(name)
}
