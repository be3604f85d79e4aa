package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Programmer-5090/hocuspocus/internal/storage"
	"github.com/Programmer-5090/hocuspocus/pkg/hocuspocus"
	"github.com/Programmer-5090/hocuspocus/pkg/logger"
	"github.com/Programmer-5090/hocuspocus/pkg/models"
)

// Global flags
var (
	dbPath     string
	tempDir    string
	sampleRate int
	robust     bool
)

func init() {
	flag.StringVar(&dbPath, "db", getEnvOrDefault("HOCUS_DB_PATH", "hocuspocus.sqlite3"), "Path to the SQLite database file")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("HOCUS_TEMP_DIR", "/tmp"), "Directory for temporary audio files")
	flag.IntVar(&sampleRate, "rate", 22050, "Audio sample rate for processing")
	flag.BoolVar(&robust, "robust", false, "Use robust (multi-strategy) fingerprint generation")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func createService() (hocuspocus.Service, error) {
	return hocuspocus.NewService(
		hocuspocus.WithDBPath(dbPath),
		hocuspocus.WithTempDir(tempDir),
		hocuspocus.WithSampleRate(sampleRate),
		hocuspocus.WithRobustFingerprints(robust),
	)
}

func main() {
	printBanner()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	logger.Debugf("executing command: %s", command)

	switch command {
	case "add":
		handleAdd()
	case "add-folder":
		handleAddFolder()
	case "identify":
		handleIdentify()
	case "list":
		handleList()
	case "delete":
		handleDelete()
	case "stats":
		handleStats()
	case "optimize":
		handleOptimize()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printBanner() {
	fmt.Println(`
 _   _                       ____
| | | | ___   ___ _   _ ___ |  _ \ ___   ___ _   _ ___
| |_| |/ _ \ / __| | | / __|| |_) / _ \ / __| | | / __|
|  _  | (_) | (__| |_| \__ \|  __/ (_) | (__| |_| \__ \
|_| |_|\___/ \___|\__,_|___/|_|   \___/ \___|\__,_|___/

            Audio Identification Engine`)
}

func printUsage() {
	fmt.Println(`Usage: hocuspocus <command> [flags]

Commands:
  add <file> --title <t> [--artist <a>]   Add a song from an audio file
  add --youtube-url <url>                 Add a song downloaded from YouTube
  add-folder <dir>                        Add every supported audio file in a folder
  identify <file>                         Identify a song from an audio clip
  identify --record <seconds>             Record from the microphone and identify
  list                                    List all songs in the database
  delete <song_id>                        Delete a song and its fingerprints
  stats                                   Show database statistics
  optimize                                Normalize legacy fingerprint storage

Global flags: -db <path> -temp <dir> -rate <hz> -robust`)
}

func handleAdd() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	title := addCmd.String("title", "", "Song title")
	artist := addCmd.String("artist", "", "Artist name")
	youtubeURL := addCmd.String("youtube-url", "", "YouTube URL to download and add")

	args := os.Args[2:]
	var audioPath string
	if len(args) > 0 && args[0][0] != '-' {
		audioPath = args[0]
		args = args[1:]
	}
	addCmd.Parse(args)

	if audioPath == "" && *youtubeURL == "" {
		fmt.Println("Error: audio file path or --youtube-url required")
		os.Exit(1)
	}
	if audioPath != "" && *youtubeURL != "" {
		fmt.Println("Error: cannot combine an audio file with --youtube-url")
		os.Exit(1)
	}
	if audioPath != "" && *title == "" {
		fmt.Println("Error: --title is required when adding a local file")
		os.Exit(1)
	}

	svc := mustCreateService()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var songID uint32
	var err error
	if *youtubeURL != "" {
		fmt.Println("Downloading audio from YouTube...")
		songID, err = svc.AddSongFromYouTube(ctx, *youtubeURL)
	} else {
		songID, err = svc.AddSong(ctx, audioPath, *title, *artist)
	}
	if err != nil {
		fmt.Printf("Failed to add song: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Added song with ID %d\n", songID)
}

func handleAddFolder() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: hocuspocus add-folder <dir>")
		os.Exit(1)
	}
	dir := os.Args[2]

	svc := mustCreateService()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()

	added, err := svc.AddSongFolder(ctx, dir)
	if err != nil {
		fmt.Printf("Folder ingestion stopped: %v\n", err)
	}
	fmt.Printf("Added %d songs from %s\n", len(added), dir)
}

func handleIdentify() {
	identifyCmd := flag.NewFlagSet("identify", flag.ExitOnError)
	recordSecs := identifyCmd.Int("record", 0, "Record this many seconds from the microphone instead of reading a file")

	args := os.Args[2:]
	var audioPath string
	if len(args) > 0 && args[0][0] != '-' {
		audioPath = args[0]
		args = args[1:]
	}
	identifyCmd.Parse(args)

	if audioPath == "" && *recordSecs == 0 {
		fmt.Println("Usage: hocuspocus identify <file>  |  hocuspocus identify --record <seconds>")
		os.Exit(1)
	}

	svc := mustCreateService()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var result *models.MatchResult
	var err error
	if *recordSecs > 0 {
		fmt.Printf("Recording %d seconds... play the song loud and clear\n", *recordSecs)
		result, err = svc.IdentifyRecording(ctx, time.Duration(*recordSecs)*time.Second)
	} else {
		result, err = svc.Identify(ctx, audioPath)
	}
	if err != nil {
		fmt.Printf("Identification failed: %v\n", err)
		os.Exit(1)
	}
	printResult(result)
}

func printResult(result *models.MatchResult) {
	fmt.Printf("Query fingerprints: %d\n", result.QueryFingerprints)
	if !result.Matched {
		fmt.Println("No match found")
		return
	}
	artist := result.Song.Artist
	if artist == "" {
		artist = "(unknown artist)"
	}
	fmt.Printf("Match: %s - %s (song %d)\n", result.Song.Title, artist, result.Song.ID)
	fmt.Printf("  offset:       %.2fs (%d frames)\n", result.OffsetSeconds, result.OffsetFrames)
	fmt.Printf("  best score:   %d\n", result.BestScore)
	fmt.Printf("  total votes:  %d\n", result.TotalMatches)
	fmt.Printf("  confidence:   %.3f\n", result.Confidence)
}

func handleList() {
	svc := mustCreateService()
	defer svc.Close()

	songs, err := svc.ListSongs()
	if err != nil {
		fmt.Printf("Failed to list songs: %v\n", err)
		os.Exit(1)
	}
	if len(songs) == 0 {
		fmt.Println("Database is empty")
		return
	}
	for _, song := range songs {
		artist := song.Artist
		if artist == "" {
			artist = "(unknown artist)"
		}
		fmt.Printf("%5d  %-40s %-25s %6.1fs\n", song.ID, song.Title, artist, song.Duration)
	}
}

func handleDelete() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: hocuspocus delete <song_id>")
		os.Exit(1)
	}
	id, err := strconv.ParseUint(os.Args[2], 10, 32)
	if err != nil {
		fmt.Printf("Invalid song ID: %s\n", os.Args[2])
		os.Exit(1)
	}

	svc := mustCreateService()
	defer svc.Close()

	if err := svc.DeleteSong(uint32(id)); err != nil {
		fmt.Printf("Failed to delete song %d: %v\n", id, err)
		os.Exit(1)
	}
	fmt.Printf("Deleted song %d\n", id)
}

func handleStats() {
	svc := mustCreateService()
	defer svc.Close()

	stats, err := svc.Stats()
	if err != nil {
		fmt.Printf("Failed to read stats: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Songs: %d\nFingerprints: %d\n", stats.TotalSongs, stats.TotalFingerprints)
}

func handleOptimize() {
	client, err := storage.NewClient(dbPath)
	if err != nil {
		fmt.Printf("Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	needed, err := client.NeedsNormalization()
	if err != nil {
		fmt.Printf("Failed to inspect database: %v\n", err)
		os.Exit(1)
	}
	if !needed {
		fmt.Println("Database is already normalized")
		return
	}

	report, err := client.Normalize()
	if err != nil {
		fmt.Printf("Normalization failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Normalized %d of %d fingerprints\n", report.Converted, report.TotalFingerprints)
}

func mustCreateService() hocuspocus.Service {
	svc, err := createService()
	if err != nil {
		fmt.Printf("Failed to initialize service: %v\n", err)
		os.Exit(1)
	}
	return svc
}
