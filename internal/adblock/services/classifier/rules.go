package classifier

import "regexp"

// DefaultWhitelist holds known-safe substrings. Entries without '/' are
// matched against the hostname, entries with '/' against the full URL.
var DefaultWhitelist = []string{
	"googlevideo.com",
	"ytimg.com",
	"ggpht.com",
	"gstatic.com",
	"googleapis.com",
	"accounts.google.com",
	"play.google.com",
	"cdnjs.cloudflare.com",
	"unpkg.com",
	"jsdelivr.net",
	"cloudflare.com",
	"akamaized.net",
	"fastly.net",
	"youtube.com/watch",
	"youtube.com/embed/",
}

// DefaultAdDomains holds ad and tracking domains matched as substrings of the
// hostname.
var DefaultAdDomains = []string{
	"googlesyndication.com",
	"googleadservices.com",
	"doubleclick.net",
	"adservice.google.com",
	"google-analytics.com",
	"googletagmanager.com",
	"facebook.net",
	"connect.facebook.net",
	"ads-twitter.com",
	"analytics.twitter.com",
	"adnxs.com",
	"adsrvr.org",
	"criteo.com",
	"criteo.net",
	"taboola.com",
	"outbrain.com",
	"amazon-adsystem.com",
	"pubmatic.com",
	"rubiconproject.com",
	"openx.net",
	"scorecardresearch.com",
	"quantserve.com",
	"demdex.net",
	"hotjar.com",
	"mixpanel.com",
	"segment.io",
}

// adPattern catches common ad-serving and analytics substrings anywhere in
// the URL.
var adPattern = regexp.MustCompile(`(?i)pagead|adserver|doubleclick|googlesyndication|adservice|ptracking|/ads[/?]|adsbygoogle`)

// videoHosts are the video site's own domains, matched exactly or as a parent.
var videoHosts = []string{
	"googlevideo.com",
	"youtube.com",
	"youtube-nocookie.com",
}

// videoAdQuery marks ad streams and ad beacons on the video hosts.
var videoAdQuery = regexp.MustCompile(`(?i)(?:^|&)(?:oad|adformat|ad_type|ad_cpn|ad_docid|ad_id|adsid)=|(?:^|&)ctier=l(?:&|$)|(?:^|&)source=yt_ad`)

// videoAdPaths are ad-serving path prefixes on the video hosts.
var videoAdPaths = []string{
	"/pagead/",
	"/ptracking",
	"/api/stats/ads",
	"/api/stats/atr",
	"/get_midroll_",
	"/pcs/activeview",
}

// videoContentPath is the path that serves genuine video segments.
const videoContentPath = "/videoplayback"
