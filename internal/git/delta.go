package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// DefaultMaxFileSize is the content size above which a file's text is
// replaced by OversizeMarker.
const DefaultMaxFileSize int64 = 1 << 20

// ExtractorOptions configures an Extractor.
type ExtractorOptions struct {
	Include     []string // Glob patterns to include
	Exclude     []string // Glob patterns to exclude
	MaxFileSize int64
}

// Extractor computes per-commit file deltas.
type Extractor struct {
	filter      *PathFilter
	maxFileSize int64
}

// NewExtractor validates the filter patterns and creates an extractor.
func NewExtractor(opts ExtractorOptions) (*Extractor, error) {
	filter, err := NewPathFilter(opts.Include, opts.Exclude)
	if err != nil {
		return nil, err
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	return &Extractor{filter: filter, maxFileSize: opts.MaxFileSize}, nil
}

// Delta returns the changes introduced by the commit at the 1-based index of
// history. The first commit yields its whole tree as added files; any other
// commit is diffed against its predecessor in history with rename detection.
//
// Modified and renamed files report the difference between old and new line
// counts rather than an aligned diff, so edits that add and remove the same
// number of lines count as zero.
func (e *Extractor) Delta(ctx context.Context, repo *gogit.Repository, history History, index int) (CommitDelta, error) {
	commit, err := history.At(index)
	if err != nil {
		return CommitDelta{}, err
	}

	tree, err := treeOf(repo, commit.Hash)
	if err != nil {
		return CommitDelta{}, err
	}

	if index == 1 {
		changes, err := e.initialChanges(ctx, tree)
		if err != nil {
			return CommitDelta{}, fmt.Errorf("read tree of %s: %w", commit.ShortHash(), err)
		}
		return CommitDelta{Commit: commit, Changes: changes, IsInitial: true}, nil
	}

	parent := history.Commits[index-2]
	parentTree, err := treeOf(repo, parent.Hash)
	if err != nil {
		return CommitDelta{}, err
	}

	changes, err := e.diffChanges(ctx, parentTree, tree)
	if err != nil {
		return CommitDelta{}, fmt.Errorf("diff %s..%s: %w", parent.ShortHash(), commit.ShortHash(), err)
	}
	return CommitDelta{Commit: commit, Changes: changes}, nil
}

func treeOf(repo *gogit.Repository, hash string) (*object.Tree, error) {
	c, err := repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return nil, fmt.Errorf("load commit %s: %w", hash, err)
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("load tree of %s: %w", hash, err)
	}
	return tree, nil
}

func (e *Extractor) initialChanges(ctx context.Context, tree *object.Tree) ([]FileChange, error) {
	var changes []FileChange
	err := tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !e.filter.Match(f.Name) {
			return nil
		}

		snap, err := e.snapshot(f)
		if err != nil {
			return err
		}
		changes = append(changes, FileChange{
			Path:       f.Name,
			Kind:       ChangeKindAdded,
			LinesAdded: snap.lines,
			DiffText:   snap.content,
			NewContent: snap.content,
			Binary:     snap.binary,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

func (e *Extractor) diffChanges(ctx context.Context, from, to *object.Tree) ([]FileChange, error) {
	diff, err := object.DiffTreeWithOptions(ctx, from, to, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, err
	}

	changes := make([]FileChange, 0, len(diff))
	for _, ch := range diff {
		action, err := ch.Action()
		if err != nil {
			return nil, err
		}

		fc := FileChange{}
		switch action {
		case merkletrie.Insert:
			fc.Kind = ChangeKindAdded
			fc.Path = ch.To.Name
		case merkletrie.Delete:
			fc.Kind = ChangeKindDeleted
			fc.Path = ch.From.Name
		default:
			fc.Kind = ChangeKindModified
			fc.Path = ch.To.Name
			if ch.From.Name != ch.To.Name {
				fc.Kind = ChangeKindRenamed
				fc.OldPath = ch.From.Name
			}
		}

		if !e.filter.Match(fc.Path) {
			continue
		}

		if err := e.fillChange(ctx, ch, &fc); err != nil {
			return nil, fmt.Errorf("%s: %w", fc.Path, err)
		}
		changes = append(changes, fc)
	}
	return changes, nil
}

func (e *Extractor) fillChange(ctx context.Context, ch *object.Change, fc *FileChange) error {
	fromFile, toFile, err := ch.Files()
	if err != nil {
		return err
	}

	var oldSnap, newSnap fileSnapshot
	if fromFile != nil {
		if oldSnap, err = e.snapshot(fromFile); err != nil {
			return err
		}
	}
	if toFile != nil {
		if newSnap, err = e.snapshot(toFile); err != nil {
			return err
		}
	}

	fc.OldContent = oldSnap.content
	fc.NewContent = newSnap.content
	fc.Binary = oldSnap.binary || newSnap.binary

	switch fc.Kind {
	case ChangeKindAdded:
		fc.LinesAdded = newSnap.lines
	case ChangeKindDeleted:
		fc.LinesDeleted = oldSnap.lines
	default:
		if d := newSnap.lines - oldSnap.lines; d > 0 {
			fc.LinesAdded = d
		} else {
			fc.LinesDeleted = -d
		}
	}

	switch {
	case fc.Binary:
		fc.DiffText = BinaryMarker
	case oldSnap.oversize || newSnap.oversize:
		fc.DiffText = OversizeMarker
	default:
		patch, err := ch.PatchContext(ctx)
		if err != nil {
			return fmt.Errorf("patch: %w", err)
		}
		fc.DiffText = patch.String()
	}
	return nil
}

type fileSnapshot struct {
	content  string
	lines    int
	binary   bool
	oversize bool
}

// snapshot reads a blob once, classifying it as binary, oversize or text.
// Content that is not valid UTF-8 counts as binary.
func (e *Extractor) snapshot(f *object.File) (fileSnapshot, error) {
	binary, err := f.IsBinary()
	if err != nil {
		return fileSnapshot{}, fmt.Errorf("inspect %s: %w", f.Name, err)
	}
	if binary {
		return fileSnapshot{content: BinaryMarker, binary: true}, nil
	}

	if f.Size > e.maxFileSize {
		lines, valid, err := streamLines(f)
		if err != nil {
			return fileSnapshot{}, err
		}
		if !valid {
			return fileSnapshot{content: BinaryMarker, binary: true}, nil
		}
		return fileSnapshot{content: OversizeMarker, lines: lines, oversize: true}, nil
	}

	content, err := f.Contents()
	if err != nil {
		return fileSnapshot{}, fmt.Errorf("read %s: %w", f.Name, err)
	}
	if !utf8.ValidString(content) {
		return fileSnapshot{content: BinaryMarker, binary: true}, nil
	}
	return fileSnapshot{content: content, lines: countLines([]byte(content))}, nil
}

// streamLines counts the lines of a blob without loading it and reports
// whether it decodes as UTF-8.
func streamLines(f *object.File) (int, bool, error) {
	r, err := f.Reader()
	if err != nil {
		return 0, false, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer r.Close()

	br := bufio.NewReader(r)
	buf := make([]byte, 32*1024)
	count := 0
	valid := true
	var pending []byte
	var last byte
	for {
		n, err := br.Read(buf)
		if n > 0 {
			count += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
			if valid {
				pending, valid = validUTF8Prefix(append(pending, buf[:n]...))
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, false, fmt.Errorf("read %s: %w", f.Name, err)
		}
	}
	if len(pending) > 0 {
		valid = false
	}
	if f.Size > 0 && last != '\n' {
		count++
	}
	return count, valid, nil
}

// validUTF8Prefix validates data up to a trailing incomplete rune, which is
// returned for the next chunk.
func validUTF8Prefix(data []byte) ([]byte, bool) {
	for len(data) > 0 {
		if !utf8.FullRune(data) {
			return append([]byte(nil), data...), true
		}
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			return nil, false
		}
		data = data[size:]
	}
	return nil, true
}

// countLines counts lines the way editors do: a trailing line without a
// newline still counts, an empty file has none.
func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	count := bytes.Count(content, []byte{'\n'})
	// If the last byte is not a newline, there's one more line
	if content[len(content)-1] != '\n' {
		count++
	}
	return count
}
