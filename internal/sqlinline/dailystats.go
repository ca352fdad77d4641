package sqlinline

const QIncrementDailyStats = `--sql 2d090bdd-1cab-428d-a29d-b28bf63854fb
insert into daily_stats
    (day, requests, successes, failures, images_generated, videos_generated, audio_generated, created_at, updated_at)
values
    (current_date, $1::int, $2::int, $3::int, $4::int, $5::int, $6::int, now(), now())
on conflict (day) do update set
    requests = daily_stats.requests + excluded.requests,
    successes = daily_stats.successes + excluded.successes,
    failures = daily_stats.failures + excluded.failures,
    images_generated = daily_stats.images_generated + excluded.images_generated,
    videos_generated = daily_stats.videos_generated + excluded.videos_generated,
    audio_generated = daily_stats.audio_generated + excluded.audio_generated,
    updated_at = now();
`

const QStatsSummary = `--sql 547e2c39-dc8c-4a5e-aed9-1034248aa172
select
    coalesce(sum(requests), 0),
    coalesce(sum(successes), 0),
    coalesce(sum(failures), 0),
    coalesce(sum(images_generated), 0),
    coalesce(sum(videos_generated), 0),
    coalesce(sum(audio_generated), 0)
from daily_stats
where day >= current_date - $1::int;
`
