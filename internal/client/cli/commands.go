package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/services"
	"github.com/dmitrijs2005/gophgallery/internal/filex"
)

var errUsage = errors.New("usage")

func usage(text string) error {
	return fmt.Errorf("%w: %s", errUsage, text)
}

func (a *App) owner() string {
	return a.session.CurrentUserID()
}

// Generate: generate [-style name] [-folder id] [-seed n] prompt...
func (a *App) Generate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	style := fs.String("style", services.DefaultStyle, "realistic, artistic, cartoon or anime")
	folder := fs.String("folder", "", "folder id")
	negative := fs.String("negative", "", "negative prompt")
	seed := fs.Int64("seed", time.Now().UnixNano(), "seed")
	if err := fs.Parse(args); err != nil {
		return usage("generate [-style name] [-folder id] [-negative text] [-seed n] <prompt>")
	}
	prompt := strings.Join(fs.Args(), " ")
	if prompt == "" {
		return usage("generate [-style name] [-folder id] [-negative text] [-seed n] <prompt>")
	}

	rec, err := a.gen.Generate(ctx, a.owner(), services.GenerateRequest{
		Prompt:         prompt,
		NegativePrompt: *negative,
		Style:          *style,
		FolderID:       *folder,
		Seed:           *seed,
	})
	if err != nil {
		return err
	}
	a.printf("Saved %s (%s, %s)\n", rec.ID, services.FormatBytes(rec.Metadata.Size), rec.SyncStatus)
	return nil
}

// List: list [-folder id] [-page n]
func (a *App) List(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	folder := fs.String("folder", "", "folder id")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil || *page < 1 {
		return usage("list [-folder id] [-page n]")
	}

	res, err := a.storage.GetImages(ctx, a.owner(), *folder, services.DefaultPageSize, (*page-1)*services.DefaultPageSize)
	if err != nil {
		return err
	}
	return a.printPage(res, *page, func(n int) string { return fmt.Sprintf("list -page %d", n) })
}

// Search: search [-page n] <query>
func (a *App) Search(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil || *page < 1 || fs.NArg() == 0 {
		return usage("search [-page n] <query>")
	}
	query := strings.Join(fs.Args(), " ")

	res, err := a.storage.SearchImages(ctx, a.owner(), query, services.DefaultPageSize, (*page-1)*services.DefaultPageSize)
	if err != nil {
		return err
	}
	return a.printPage(res, *page, func(n int) string { return fmt.Sprintf("search -page %d %s", n, query) })
}

func (a *App) printPage(res models.ImagePage, page int, next func(page int) string) error {
	if len(res.Images) == 0 {
		a.printf("No images\n")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSIZE\tSYNC\tPROMPT")
	for _, img := range res.Images {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			img.ID, img.CreatedAt.Local().Format(time.DateTime),
			services.FormatBytes(img.Metadata.Size), img.SyncStatus, truncate(img.Prompt, 40))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	a.printf("Page %d, %d of %d images", page, len(res.Images), res.Total)
	if res.HasMore {
		a.printf(" (more: %s)", next(page+1))
	}
	a.printf("\n")
	return nil
}

// Show: show <id>
func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("show <id>")
	}
	img, err := a.storage.GetImage(ctx, args[0], a.owner())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", img.ID)
	fmt.Fprintf(tw, "Prompt:\t%s\n", img.Prompt)
	fmt.Fprintf(tw, "Style:\t%s\n", img.Style)
	fmt.Fprintf(tw, "Tags:\t%s\n", strings.Join(img.Tags, ", "))
	fmt.Fprintf(tw, "Folder:\t%s\n", img.FolderID)
	fmt.Fprintf(tw, "Model:\t%s\n", img.Metadata.Model)
	fmt.Fprintf(tw, "Size:\t%dx%d, %s", img.Metadata.Width, img.Metadata.Height, services.FormatBytes(img.Metadata.Size))
	if img.Metadata.Compressed {
		fmt.Fprintf(tw, " (from %s)", services.FormatBytes(img.Metadata.OriginalSize))
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Sync:\t%s\n", img.SyncStatus)
	if img.RemoteURL != "" {
		fmt.Fprintf(tw, "Remote:\t%s\n", img.RemoteURL)
	}
	fmt.Fprintf(tw, "Created:\t%s\n", img.CreatedAt.Local().Format(time.DateTime))
	return tw.Flush()
}

// Export: export <id> [path]
func (a *App) Export(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usage("export <id> [path]")
	}
	img, err := a.storage.GetImage(ctx, args[0], a.owner())
	if err != nil {
		return err
	}
	if len(img.Payload) == 0 {
		return fmt.Errorf("image %s has no local payload", img.ID)
	}

	path := img.ID + filex.ExtensionFor(img.Metadata.MimeType)
	if len(args) == 2 {
		path = args[1]
	}
	if err := filex.EnsureParentDir(path); err != nil {
		return err
	}
	if err := filex.WriteFileAtomic(path, img.Payload, 0o600); err != nil {
		return err
	}
	a.printf("Exported %s to %s\n", img.ID, path)
	return nil
}

// Delete: delete <id>
func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("delete <id>")
	}
	ok, err := Confirm(a.reader, "Delete "+args[0]+"?", a.out)
	if err != nil || !ok {
		return err
	}
	if err := a.storage.DeleteImage(ctx, args[0], a.owner()); err != nil {
		return err
	}
	a.printf("Deleted %s\n", args[0])
	return nil
}

// Mkdir: mkdir [-icon x] [-color #rrggbb] name...
func (a *App) Mkdir(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mkdir", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	icon := fs.String("icon", "", "folder icon")
	color := fs.String("color", "", "folder color")
	if err := fs.Parse(args); err != nil || fs.NArg() == 0 {
		return usage("mkdir [-icon x] [-color #rrggbb] <name>")
	}

	f, err := a.storage.CreateFolder(ctx, a.owner(), strings.Join(fs.Args(), " "), *icon, *color)
	if err != nil {
		return err
	}
	a.printf("Created folder %s %s (%s)\n", f.Icon, f.Name, f.ID)
	return nil
}

func (a *App) Folders(ctx context.Context) error {
	folders, err := a.storage.GetFolders(ctx, a.owner())
	if err != nil {
		return err
	}
	if len(folders) == 0 {
		a.printf("No folders\n")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tIMAGES\tSYNC")
	for _, f := range folders {
		fmt.Fprintf(tw, "%s\t%s %s\t%d\t%s\n", f.ID, f.Icon, f.Name, f.ImageCount, f.SyncStatus)
	}
	return tw.Flush()
}

// Rmdir: rmdir <id>
func (a *App) Rmdir(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("rmdir <id>")
	}
	if err := a.storage.DeleteFolder(ctx, args[0], a.owner()); err != nil {
		return err
	}
	a.printf("Deleted folder %s\n", args[0])
	return nil
}

// Sync checks the mirror and drains the sync queue if it is reachable.
func (a *App) Sync(ctx context.Context) error {
	if !a.checkOnline(ctx) {
		return fmt.Errorf("mirror is unreachable, changes stay queued")
	}
	report, err := a.storage.Drain(ctx)
	if err != nil {
		return err
	}
	a.printReport(report)
	return nil
}

func (a *App) printReport(r models.DrainReport) {
	a.printf("Replayed %d, failed %d, dropped %d, deferred %d, remaining %d\n",
		r.Replayed, r.Failed, r.Dropped, r.Deferred, r.Remaining)
}

func (a *App) Stats(ctx context.Context) error {
	st, err := a.storage.Stats(ctx, a.owner())
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Images:\t%d (%d local only, %d in cloud)\n", st.TotalImages, st.LocalImages, st.CloudImages)
	fmt.Fprintf(tw, "Folders:\t%d\n", st.TotalFolders)
	fmt.Fprintf(tw, "Size:\t%s\n", st.TotalSizeHuman)
	fmt.Fprintf(tw, "Pending sync:\t%d\n", st.PendingSync)
	fmt.Fprintf(tw, "Dropped:\t%d\n", st.DroppedEntries)
	fmt.Fprintf(tw, "Last sync:\t%s\n", formatTime(st.LastDrain))
	return tw.Flush()
}

// Cleanup: cleanup [days]
func (a *App) Cleanup(ctx context.Context, args []string) error {
	maxAge := services.DefaultCleanupAge
	if len(args) > 1 {
		return usage("cleanup [days]")
	}
	if len(args) == 1 {
		days, err := strconv.Atoi(args[0])
		if err != nil || days <= 0 {
			return usage("cleanup [days]")
		}
		maxAge = time.Duration(days) * 24 * time.Hour
	}

	n, err := a.storage.Cleanup(ctx, a.owner(), maxAge)
	if err != nil {
		return err
	}
	a.printf("Removed %d unsynced images older than %d days\n", n, int(maxAge.Hours()/24))
	return nil
}

func (a *App) Status(ctx context.Context) error {
	st, err := a.storage.QueueStatus(ctx)
	if err != nil {
		return err
	}
	mode := "offline"
	if a.session.IsOnline() {
		mode = "online"
	}
	a.printf("Mirror: %s\n", mode)
	if a.auth != nil {
		ok, err := a.tokens.Has(ctx, a.owner())
		if err != nil {
			return err
		}
		account := "not signed in (cloud-login)"
		if ok {
			account = "signed in"
		}
		a.printf("Mirror account: %s\n", account)
	}
	a.printf("Queue: %d pending", st.Pending)
	if st.Draining {
		a.printf(", draining")
	}
	a.printf("\n")
	for _, action := range []models.Action{models.ActionUpload, models.ActionDelete, models.ActionCreateFolder, models.ActionDeleteFolder} {
		if n := st.ByAction[action]; n > 0 {
			a.printf("  %s: %d\n", action, n)
		}
	}
	if !st.Oldest.IsZero() {
		a.printf("Oldest entry: %s\n", formatTime(st.Oldest))
	}
	a.printf("Dropped: %d, last sync: %s\n", st.Dropped, formatTime(st.LastDrain))
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
