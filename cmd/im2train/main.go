// Command im2train annotates images with labeled bounding boxes and
// generates the train/test file lists a detection training pipeline
// consumes.
//
// Usage:
//
//	im2train resize -c config.txt -d ./photos
//	im2train label  -c config.txt -d ./photos
//	im2train lists  -c config.txt -d ./photos -r 0.8
package main

import "github.com/im2train/im2train/internal/cli"

func main() {
	cli.Execute()
}
