// Package flickr is a small client for the Flickr REST API in its JSON
// flavour (format=json, nojsoncallback=1).
//
// Only the four read-only methods needed for picking photos are wrapped:
//
//	flickr.photos.licenses.getInfo
//	flickr.photos.search
//	flickr.photos.getInfo
//	flickr.photos.getSizes
//
// Every call goes through Client.Call, which classifies failures as
// *errors.Error values. HTTP failures keep their status code, while a body
// with "stat":"fail" becomes ErrorTypeAPI carrying Flickr's own code and
// message.
//
// Flickr is inconsistent about quoting numbers (license ids, widths, the
// takenunknown flag), so the models use FlexString and FlexInt which accept
// both forms.
package flickr
