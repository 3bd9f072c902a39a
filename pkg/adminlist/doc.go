// Package adminlist builds the operator's subscription list screen.
//
// Every part of the page passes through a named filter on a hooks.Dispatcher
// so extensions can add columns, views, query restrictions, cell markup, row
// highlights and notices without touching this package:
//
//	FilterColumns    []Column
//	FilterViews      []View
//	FilterQuery      Query
//	FilterCell       Cell
//	FilterHighlight  []int64
//	FilterNotices    []Notice
//
// Filters receive the request parameters through ParamsFromContext.
// Screen.Routes mounts the page as JSON on a chi router.
package adminlist
