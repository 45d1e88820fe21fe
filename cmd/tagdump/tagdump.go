package main

import (
	"fmt"
	"os"

	"github.com/tagmeld/tagmeld"
)

// Debug tool: dump the tags, fields and notifications of a media file.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: tagdump <file>")
		os.Exit(1)
	}

	file, err := tagmeld.Open(os.Args[1])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	fmt.Printf("%s: %s, %d bytes\n", file.Path, file.Format, file.Size)
	fmt.Printf("audio: %s\n", file.Audio)

	fields := []struct {
		name  string
		field tagmeld.KnownField
	}{
		{"title", tagmeld.FieldTitle},
		{"album", tagmeld.FieldAlbum},
		{"artist", tagmeld.FieldArtist},
		{"album artist", tagmeld.FieldAlbumArtist},
		{"genre", tagmeld.FieldGenre},
		{"year", tagmeld.FieldYear},
		{"track", tagmeld.FieldTrackPosition},
		{"disk", tagmeld.FieldDiskPosition},
		{"comment", tagmeld.FieldComment},
		{"composer", tagmeld.FieldComposer},
		{"encoder", tagmeld.FieldEncoder},
	}

	for _, tag := range file.Tags {
		fmt.Printf("\n[%s]\n", tag.TypeName())
		for _, f := range fields {
			if !tag.HasField(f.field) {
				continue
			}
			fmt.Printf("  %-12s %s\n", f.name, tag.Value(f.field))
		}
		if cover := tag.Value(tagmeld.FieldCover); !cover.IsEmpty() {
			fmt.Printf("  %-12s %s, %d bytes\n", "cover", cover.MIMEType(), len(cover.Data()))
		}
	}

	if len(file.Notifications) > 0 {
		fmt.Println("\nnotifications:")
		for _, n := range file.Notifications {
			fmt.Printf("  %s\n", n)
		}
	}
}
