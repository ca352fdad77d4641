package sqlinline

const QInsertArtifact = `--sql dbdb1158-0c12-4f5b-a344-026f49f3cb98
insert into artifacts
    (id, job_id, account_id, kind, post_type, storage_key, mime, text_body, aspect_ratio, adapted_key, created_at)
values
    ($1::uuid, $2::uuid, $3::uuid, $4::text, $5::text, $6::text, $7::text, $8::text, $9::text, $10::text, now())
returning created_at;
`

const QSelectArtifactForAccount = `--sql b3ad6057-7a8b-463c-8d2b-485903e6e9b1
select id, job_id, account_id, kind, post_type, storage_key, mime, text_body, aspect_ratio, adapted_key, created_at
from artifacts
where id = $1::uuid and account_id = $2::uuid
limit 1;
`

const QListArtifactsByAccount = `--sql 94292af9-ff44-4381-baf4-d0b78aec2867
select id, job_id, account_id, kind, post_type, storage_key, mime, text_body, aspect_ratio, adapted_key, created_at
from artifacts
where account_id = $1::uuid
order by created_at desc
limit $2::int offset $3::int;
`
