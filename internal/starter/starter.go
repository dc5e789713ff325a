// Package starter embeds the files written by `treemerge init`: a project
// config and an example injection recipe. The embedded filesystem is rooted
// at "files/".
package starter

import "embed"

// Root is the directory inside FS that holds the starter files.
const Root = "files"

// FS contains the embedded starter files.
//
//go:embed all:files
var FS embed.FS
