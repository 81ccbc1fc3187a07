// Package scraper fetches Meetup group event listings.
//
// Meetup renders its event pages client side, so each group's events page is
// rendered through a browserless instance. The rendered HTML carries the page
// state in a script#__NEXT_DATA__ element; the scraper locates it with
// goquery and walks the Apollo cache inside it, turning every Event entry into
// an event.RawRecord in document order.
//
// FetchAll fetches many groups with bounded concurrency. A group that cannot
// be fetched or parsed yields a *FetchError and contributes no records; the
// other groups are unaffected.
package scraper
