// Package archive names and packages the rendered order documents into the
// zip delivered to the user.
package archive

import (
	"archive/zip"
	"bytes"
	"strings"

	"astob-order-generator/pkg/errors"
	"astob-order-generator/pkg/logger"
)

// ArchiveName is the fixed name of the delivered zip.
const ArchiveName = "ordine.zip"

// Document is one rendered order ready for packaging.
type Document struct {
	Name string
	Data []byte
}

// filename characters zip tooling or filesystems choke on.
var unsafeChars = strings.NewReplacer(
	"/", "_", "\\", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", ":", "_",
)

// SafeFileName derives the document filename for a client, replacing
// characters that are unsafe in archive entries and collapsing runs of
// whitespace the substitution may produce.
func SafeFileName(clientName string) string {
	name := unsafeChars.Replace(clientName)
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		name = "client"
	}
	return "Ordin - " + name + ".xlsx"
}

// Package assembles the documents into a zip archive. Entries keep their
// input order and carry no timestamps, so identical inputs produce
// identical archives.
func Package(docs []Document) ([]byte, error) {
	log := logger.GetGlobalLogger().WithComponent("archive")

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, doc := range docs {
		header := &zip.FileHeader{
			Name:   doc.Name,
			Method: zip.Deflate,
		}
		entry, err := w.CreateHeader(header)
		if err != nil {
			return nil, errors.InternalError("creating archive entry", err).
				WithContext("entry", doc.Name)
		}
		if _, err := entry.Write(doc.Data); err != nil {
			return nil, errors.InternalError("writing archive entry", err).
				WithContext("entry", doc.Name)
		}
	}

	if err := w.Close(); err != nil {
		return nil, errors.InternalError("finalizing the archive", err)
	}

	log.WithFields(logger.Fields{
		"documents": len(docs),
		"bytes":     buf.Len(),
	}).Debug("Archive packaged")

	return buf.Bytes(), nil
}
