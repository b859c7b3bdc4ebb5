// Package render fetches a single URL and returns its HTML plus response
// metadata.
//
// Two renderers implement the Renderer interface:
//   - StaticRenderer issues a plain HTTP GET
//   - HeadlessRenderer loads the page in headless Chrome via chromedp and
//     returns the DOM after scripts ran
//
// AdaptiveRenderer combines them: every URL is fetched statically first
// and re-rendered headless only when the page is a script shell (a
// client-side app that ships no content without JavaScript) or when
// JavaScript rendering is forced. Static and headless fetches are gated by
// separate semaphores so that the expensive headless path runs with a
// smaller concurrency cap.
package render
