package launcher

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/vk/bundlego/internal/builderr"
	"github.com/vk/bundlego/internal/config"
	"github.com/vk/bundlego/internal/ctxlog"
)

// iconTypes lists the content types expected for an icon per target OS.
var iconTypes = map[string][]string{
	config.OSWindows: {"image/x-icon", "image/vnd.microsoft.icon"},
	config.OSDarwin:  {"image/x-icns", "image/png"},
	config.OSLinux:   {"image/png", "image/svg+xml"},
}

// Resource is a file referenced by the executable metadata.
type Resource struct {
	Kind string
	// Path is as declared; Abs is resolved against the source root.
	Path string
	Abs  string
}

// Resources lists the icon and, when declared, the splash image.
func Resources(app *config.Application, exe *config.Executable) []Resource {
	res := []Resource{{Kind: "icon", Path: exe.Icon, Abs: app.Resolve(exe.Icon)}}
	if exe.Splash != "" {
		res = append(res, Resource{Kind: "splash", Path: exe.Splash, Abs: app.Resolve(exe.Splash)})
	}
	return res
}

// CheckResources verifies that every resource exists and sniffs its content
// type. Missing resources are returned as ResourceNotFoundError values, all
// of them rather than the first; odd content types become warnings.
func CheckResources(ctx context.Context, app *config.Application, exe *config.Executable) ([]builderr.Warning, []error) {
	logger := ctxlog.Stage(ctx, "resources")
	var warnings []builderr.Warning
	var errs []error

	for _, r := range Resources(app, exe) {
		info, err := os.Stat(r.Abs)
		if err != nil || !info.Mode().IsRegular() {
			if err != nil && !os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("checking %s %q: %w", r.Kind, r.Path, err))
				continue
			}
			errs = append(errs, &builderr.ResourceNotFoundError{Kind: r.Kind, Path: r.Path})
			continue
		}

		mtype, err := mimetype.DetectFile(r.Abs)
		if err != nil {
			errs = append(errs, fmt.Errorf("reading %s %q: %w", r.Kind, r.Path, err))
			continue
		}
		logger.Debug("Resource found.", "kind", r.Kind, "path", r.Path, "content_type", mtype.String())

		if w := checkType(r, mtype, exe.TargetOS); w != nil {
			logger.Warn("Resource has an unexpected content type.", "kind", r.Kind, "path", r.Path, "content_type", mtype.String())
			warnings = append(warnings, w)
		}
	}
	return warnings, errs
}

func checkType(r Resource, mtype *mimetype.MIME, targetOS string) builderr.Warning {
	if r.Kind == "icon" {
		for _, want := range iconTypes[targetOS] {
			if mtype.Is(want) {
				return nil
			}
		}
	} else {
		for m := mtype; m != nil; m = m.Parent() {
			if strings.HasPrefix(m.String(), "image/") {
				return nil
			}
		}
	}
	return &builderr.IconFormatWarning{
		Kind:     r.Kind,
		Path:     r.Path,
		Detected: mtype.String(),
		TargetOS: targetOS,
	}
}
