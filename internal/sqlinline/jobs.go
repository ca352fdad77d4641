package sqlinline

const QEnqueueJob = `--sql 4aac634c-c40d-498a-b10e-b4cca32dad48
insert into generation_jobs
    (id, account_id, kind, post_type, status, payload_json, cost, failure_kind, error_message, retry_of, created_at, updated_at)
values
    ($1::uuid, $2::uuid, $3::text, $4::text, 'QUEUED', $5::jsonb, $6::bigint, '', '', $7::uuid, now(), now())
returning created_at;
`

const QSelectJobByID = `--sql 1c244d25-66a0-4d17-abe2-9f60860f60d0
select id, account_id, kind, post_type, status, payload_json, cost, failure_kind, error_message, retry_of, created_at, updated_at
from generation_jobs
where id = $1::uuid
limit 1;
`

const QSelectJobForAccount = `--sql 8aad2ddb-c4bc-41f3-af63-f5406a8fd634
select id, account_id, kind, post_type, status, payload_json, cost, failure_kind, error_message, retry_of, created_at, updated_at
from generation_jobs
where id = $1::uuid and account_id = $2::uuid
limit 1;
`

const QClaimJob = `--sql 3b1c45dc-1b11-4b42-9151-702bb9dc870e
with next_job as (
    select id
    from generation_jobs
    where status = 'QUEUED'
    order by created_at asc
    for update skip locked
    limit 1
),
updated as (
    update generation_jobs
    set status = 'RUNNING', updated_at = now()
    where id in (select id from next_job)
    returning id, account_id, kind, post_type, status, payload_json, cost, failure_kind, error_message, retry_of, created_at, updated_at
)
select * from updated;
`

const QFinishJob = `--sql 03c66183-98d3-43f7-95eb-0059474d4c0c
update generation_jobs
set status = $2::text,
    failure_kind = $3::text,
    error_message = $4::text,
    updated_at = now()
where id = $1::uuid;
`
