// Package data carries the built-in document template bodies. They are
// compiled into the binary so a fresh deployment can generate notices
// and complaints before any custom templates are loaded.
package data

import (
	_ "embed"
)

//go:embed templates/notice_to_quit.txt
var NoticeToQuitTemplate string

//go:embed templates/complaint.txt
var ComplaintTemplate string
