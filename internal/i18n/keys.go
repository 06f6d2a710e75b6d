package i18n

// Key names one UI message. Crowd level and status keys match the
// String forms of transit.CrowdLevel and transit.Status.
type Key string

const (
	KeyAppName           Key = "appName"
	KeyTagline           Key = "tagline"
	KeySearch            Key = "search"
	KeySearchPlaceholder Key = "searchPlaceholder"
	KeyHome              Key = "home"
	KeyRoutes            Key = "routes"
	KeyStops             Key = "stops"
	KeyFavorites         Key = "favorites"
	KeySettings          Key = "settings"
	KeyBusNumber         Key = "busNumber"
	KeyRoute             Key = "route"
	KeyFrom              Key = "from"
	KeyTo                Key = "to"
	KeyVia               Key = "via"
	KeyNextBus           Key = "nextBus"
	KeyArriving          Key = "arriving"
	KeyArrived           Key = "arrived"
	KeyMinutes           Key = "minutes"
	KeyCrowdLevel        Key = "crowdLevel"
	KeyEmpty             Key = "empty"
	KeyFewSeats          Key = "fewSeats"
	KeyStandingRoom      Key = "standingRoom"
	KeyCrowded           Key = "crowded"
	KeyVeryCrowded       Key = "veryCrowded"
	KeyLiveTracking      Key = "liveTracking"
	KeyTrackBus          Key = "trackBus"
	KeyBusLocation       Key = "busLocation"
	KeyEstimatedArrival  Key = "estimatedArrival"
	KeyLastUpdated       Key = "lastUpdated"
	KeyBusStops          Key = "busStops"
	KeyNearbyStops       Key = "nearbyStops"
	KeyAllStops          Key = "allStops"
	KeyStopName          Key = "stopName"
	KeyStopCode          Key = "stopCode"
	KeyDistance          Key = "distance"
	KeyFeatures          Key = "features"
	KeyRealTimeTracking  Key = "realTimeTracking"
	KeyCrowdInfo         Key = "crowdInfo"
	KeyRoutePlanning     Key = "routePlanning"
	KeyNotifications     Key = "notifications"
	KeyViewOnMap         Key = "viewOnMap"
	KeyGetDirections     Key = "getDirections"
	KeySetReminder       Key = "setReminder"
	KeyAddToFavorites    Key = "addToFavorites"
	KeyShareLocation     Key = "shareLocation"
	KeyOnTime            Key = "onTime"
	KeyDelayed           Key = "delayed"
	KeyCancelled         Key = "cancelled"
	KeyAboutUs           Key = "aboutUs"
	KeyContact           Key = "contact"
	KeyHelp              Key = "help"
	KeyPrivacy           Key = "privacy"
	KeyTerms             Key = "terms"
	KeyNoResults         Key = "noResults"
	KeyLoading           Key = "loading"
	KeyError             Key = "error"
	KeyRefresh           Key = "refresh"
	KeyPopularRoutes     Key = "popularRoutes"
	KeyViewAll           Key = "viewAll"
	KeyLanguage          Key = "language"
	KeyEnglish           Key = "english"
	KeyKannada           Key = "kannada"
)

// Keys lists every message key in table order.
var Keys = []Key{
	KeyAppName,
	KeyTagline,
	KeySearch,
	KeySearchPlaceholder,
	KeyHome,
	KeyRoutes,
	KeyStops,
	KeyFavorites,
	KeySettings,
	KeyBusNumber,
	KeyRoute,
	KeyFrom,
	KeyTo,
	KeyVia,
	KeyNextBus,
	KeyArriving,
	KeyArrived,
	KeyMinutes,
	KeyCrowdLevel,
	KeyEmpty,
	KeyFewSeats,
	KeyStandingRoom,
	KeyCrowded,
	KeyVeryCrowded,
	KeyLiveTracking,
	KeyTrackBus,
	KeyBusLocation,
	KeyEstimatedArrival,
	KeyLastUpdated,
	KeyBusStops,
	KeyNearbyStops,
	KeyAllStops,
	KeyStopName,
	KeyStopCode,
	KeyDistance,
	KeyFeatures,
	KeyRealTimeTracking,
	KeyCrowdInfo,
	KeyRoutePlanning,
	KeyNotifications,
	KeyViewOnMap,
	KeyGetDirections,
	KeySetReminder,
	KeyAddToFavorites,
	KeyShareLocation,
	KeyOnTime,
	KeyDelayed,
	KeyCancelled,
	KeyAboutUs,
	KeyContact,
	KeyHelp,
	KeyPrivacy,
	KeyTerms,
	KeyNoResults,
	KeyLoading,
	KeyError,
	KeyRefresh,
	KeyPopularRoutes,
	KeyViewAll,
	KeyLanguage,
	KeyEnglish,
	KeyKannada,
}
