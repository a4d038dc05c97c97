package anilist

// Query identities. They double as the cache-key query component.
const (
	QueryAnime          = "anime"
	QueryAiringSchedule = "airingSchedule"
)

const mediaFields = `
      id
      title {
        romaji
        english
        native
      }
      coverImage {
        extraLarge
        large
        medium
        color
      }
      description(asHtml: false)
      genres
      averageScore
      status
      episodes
      format
      startDate {
        year
        month
        day
      }
      season
      seasonYear
      studios {
        edges {
          isMain
          node {
            id
            name
          }
        }
      }`

const animeQuery = `
query (
  $page: Int,
  $perPage: Int,
  $season: MediaSeason,
  $seasonYear: Int,
  $search: String,
  $sort: [MediaSort],
  $id_in: [Int],
  $genre_in: [String],
  $format_in: [MediaFormat],
  $averageScore_greater: Int,
  $averageScore_lesser: Int,
  $status_in: [MediaStatus]
) {
  Page(page: $page, perPage: $perPage) {
    pageInfo {
      total
      currentPage
      lastPage
      hasNextPage
      perPage
    }
    media(
      season: $season,
      seasonYear: $seasonYear,
      search: $search,
      type: ANIME,
      sort: $sort,
      isAdult: false,
      id_in: $id_in,
      genre_in: $genre_in,
      format_in: $format_in,
      averageScore_greater: $averageScore_greater,
      averageScore_lesser: $averageScore_lesser,
      status_in: $status_in
    ) {` + mediaFields + `
      nextAiringEpisode {
        episode
        timeUntilAiring
        airingAt
      }
    }
  }
}
`

const airingScheduleQuery = `
query (
  $page: Int,
  $perPage: Int,
  $airingAt_greater: Int,
  $airingAt_lesser: Int,
  $sort: [AiringSort]
) {
  Page(page: $page, perPage: $perPage) {
    pageInfo {
      total
      currentPage
      lastPage
      hasNextPage
      perPage
    }
    airingSchedules(
      airingAt_greater: $airingAt_greater,
      airingAt_lesser: $airingAt_lesser,
      sort: $sort,
      notYetAired: true
    ) {
      id
      airingAt
      episode
      mediaId
      media {` + mediaFields + `
      }
    }
  }
}
`

var queries = map[string]string{
	QueryAnime:          animeQuery,
	QueryAiringSchedule: airingScheduleQuery,
}
