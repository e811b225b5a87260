// Package site implements a providers.Fetcher for chapter pages of a
// branching story site. Each page is loaded once through the session client
// and the title, content container, images, author and "Previous Chapter"
// link are extracted with CSS selectors taken from the site config.
package site
