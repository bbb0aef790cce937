package page

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"

	"storekit/pkg/dberror"
	"storekit/pkg/primitives"
)

const component = "BaseFile"

var (
	// ErrFileClosed is returned by every operation on a closed file.
	ErrFileClosed = dberror.New(dberror.CategoryIO, "FILE_CLOSED", "file is closed")

	// ErrPartialPage is returned when the block at the requested offset is
	// shorter than PageSize, which means the file was truncated mid-page.
	ErrPartialPage = dberror.New(dberror.CategoryFormat, "PARTIAL_PAGE", "file ends inside a page")

	// ErrInvalidPageData is returned when a write is not exactly PageSize bytes.
	ErrInvalidPageData = dberror.New(dberror.CategoryFormat, "INVALID_PAGE_DATA", "page data must be exactly PageSize bytes")
)

// BaseFile provides positional page IO over a single OS file.
//
// Key responsibilities:
//   - Managing the underlying OS file handle
//   - Reading and writing whole PageSize blocks at pageNo*PageSize
//   - Counting and reserving pages
//   - Deriving the table id from the file path
//
// Thread-safety: All public methods use read/write locks to ensure safe concurrent access.
type BaseFile struct {
	file     *os.File
	tableID  primitives.TableID
	mutex    sync.RWMutex
	filePath primitives.Filepath
}

// NewBaseFile opens (creating if needed) the file at filePath.
//
// Parameters:
//   - filePath: The path to the database file to open
//
// Returns:
//   - *BaseFile: The opened file
//   - error: An error if the path is empty or the file cannot be opened
func NewBaseFile(filePath primitives.Filepath) (*BaseFile, error) {
	if filePath == "" {
		return nil, errors.New("filePath cannot be empty")
	}

	file, err := os.OpenFile(string(filePath), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, dberror.IOError(err, "Open", component)
	}

	return &BaseFile{
		file:     file,
		tableID:  filePath.Hash(),
		filePath: filePath,
	}, nil
}

// GetID returns the table id, an xxhash of the absolute file path.
func (bf *BaseFile) GetID() primitives.TableID {
	return bf.tableID
}

// FilePath returns the path used to open this file.
func (bf *BaseFile) FilePath() primitives.Filepath {
	return bf.filePath
}

// NumPages returns the number of pages in the file. A trailing partial block
// counts as a page.
func (bf *BaseFile) NumPages() (primitives.PageNumber, error) {
	bf.mutex.RLock()
	defer bf.mutex.RUnlock()

	if bf.file == nil {
		return 0, ErrFileClosed.WithOperation("NumPages", component)
	}
	return bf.numPagesLocked()
}

func (bf *BaseFile) numPagesLocked() (primitives.PageNumber, error) {
	fileInfo, err := bf.file.Stat()
	if err != nil {
		return 0, dberror.IOError(err, "Stat", component)
	}

	numPages := primitives.PageNumber(fileInfo.Size() / int64(PageSize))
	if fileInfo.Size()%int64(PageSize) != 0 {
		numPages++
	}
	return numPages, nil
}

// ReadPageData reads the PageSize block for pageNo.
//
// Returns:
//   - []byte: exactly PageSize bytes
//   - error: io.EOF when the block starts at or past the end of the file,
//     ErrPartialPage when the file ends inside the block, or an IO error
func (bf *BaseFile) ReadPageData(pageNo primitives.PageNumber) ([]byte, error) {
	bf.mutex.RLock()
	defer bf.mutex.RUnlock()

	if bf.file == nil {
		return nil, ErrFileClosed.WithOperation("ReadPageData", component)
	}

	offset := int64(pageNo) * int64(PageSize)
	pageData := make([]byte, PageSize)

	n, err := bf.file.ReadAt(pageData, offset)
	switch {
	case err == nil:
		return pageData, nil
	case errors.Is(err, io.EOF) && n == 0:
		return nil, io.EOF
	case errors.Is(err, io.EOF):
		return nil, ErrPartialPage.WithDetailf("page %d has %d of %d bytes", pageNo, n, PageSize)
	default:
		return nil, dberror.IOError(err, "ReadPageData", component)
	}
}

// WritePageData writes pageData at pageNo*PageSize and syncs the file.
func (bf *BaseFile) WritePageData(pageNo primitives.PageNumber, pageData []byte) error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.file == nil {
		return ErrFileClosed.WithOperation("WritePageData", component)
	}

	if len(pageData) != PageSize {
		return ErrInvalidPageData.WithDetailf("got %d bytes", len(pageData))
	}

	offset := int64(pageNo) * int64(PageSize)
	if _, err := bf.file.WriteAt(pageData, offset); err != nil {
		return dberror.IOError(err, "WritePageData", component)
	}

	if err := bf.file.Sync(); err != nil {
		return dberror.IOError(err, "Sync", component)
	}
	return nil
}

// AllocateNewPage reserves the next page number by extending the file with
// a zero-filled page. Concurrent callers always receive distinct numbers.
func (bf *BaseFile) AllocateNewPage() (primitives.PageNumber, error) {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.file == nil {
		return 0, ErrFileClosed.WithOperation("AllocateNewPage", component)
	}

	pageNo, err := bf.numPagesLocked()
	if err != nil {
		return 0, err
	}

	offset := int64(pageNo) * int64(PageSize)
	if _, err := bf.file.WriteAt(make([]byte, PageSize), offset); err != nil {
		return 0, dberror.IOError(err, "AllocateNewPage", component)
	}

	if err := bf.file.Sync(); err != nil {
		return 0, dberror.IOError(err, "Sync", component)
	}

	return pageNo, nil
}

// Close closes the underlying file handle. Closing twice is a no-op.
func (bf *BaseFile) Close() error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.file != nil {
		err := bf.file.Close()
		bf.file = nil
		return err
	}

	return nil
}
